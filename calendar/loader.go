package calendar

import (
	"context"
	"sort"
	"time"

	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"golang.org/x/sync/errgroup"
)

// desiredDateKeys are the top-level keys the desired date was stored under.
var desiredDateKeys = []string{models.FieldDesiredDate, models.FieldLegacyDesiredDate}

// rfc3339Ceiling sorts after any RFC 3339 suffix, so "2024-07-31T10:00:00Z" <= "2024-07-31~".
const rfc3339Ceiling = "~"

// DesiredDateQueries returns one query per stored desired-date shape covering the
// calendar days from..to inclusive: the plain string field, the nested datum as a
// string and the nested datum as a timestamp, for every historical key.
// RFC 3339 datums can shift a day when read in the local zone, so the datum string
// range reaches one day further each way. Callers filter by normalized day.
func DesiredDateQueries(collection string, from, to time.Time) []store.Query {
	startDay, endDay := utils.FormatDay(from), utils.FormatDay(to)
	datumStart, datumEnd := utils.FormatDay(from.AddDate(0, 0, -1)), utils.FormatDay(to.AddDate(0, 0, 1))
	startTime, endTime := utils.StartOfDay(from), utils.EndOfDay(to)

	var queries []store.Query
	for _, key := range desiredDateKeys {
		datum := key + ".datum"
		queries = append(queries,
			store.Query{Collection: collection, Filters: []store.Filter{
				store.Where(key, store.OpGte, startDay),
				store.Where(key, store.OpLte, endDay),
			}},
			store.Query{Collection: collection, Filters: []store.Filter{
				store.Where(datum, store.OpGte, datumStart),
				store.Where(datum, store.OpLte, datumEnd+rfc3339Ceiling),
			}},
			store.Query{Collection: collection, Filters: []store.Filter{
				store.Where(datum, store.OpGte, startTime),
				store.Where(datum, store.OpLte, endTime),
			}},
		)
	}
	return queries
}

// LoadByDesiredDate runs every desired-date query concurrently and merges the
// results by id, so a record matching several shapes is returned once. Any
// query failure fails the whole load.
func LoadByDesiredDate(ctx context.Context, st store.Store, collection string, from, to time.Time) ([]store.Record, error) {
	queries := DesiredDateQueries(collection, from, to)
	results := make([][]store.Record, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			recs, err := st.Query(gctx, q)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergeByID(results...), nil
}

// MergeByID unions record sets keeping the first occurrence of each id, ordered by id.
func MergeByID(sets ...[]store.Record) []store.Record {
	seen := make(map[string]store.Record)
	for _, set := range sets {
		for _, rec := range set {
			if _, ok := seen[rec.ID]; !ok {
				seen[rec.ID] = rec
			}
		}
	}

	out := make([]store.Record, 0, len(seen))
	for _, rec := range seen {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
