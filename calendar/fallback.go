package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go-bakery/models"
	"go-bakery/store"

	"go.uber.org/zap"
)

var (
	isoDayPattern    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	germanDayPattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
)

// fields whose dates are never the desired date.
var nonDesiredDateFields = []string{models.FieldCreatedAt, models.FieldArchivedAt}

// fallbackScan is the last-resort heuristic for records no shape query can see:
// a bounded scan that takes the first date-shaped substring of each serialized
// record falling in the target month. It is lossy and always logged.
func (a *MonthlyAggregator) fallbackScan(ctx context.Context, year int, month time.Month) (*MonthResult, error) {
	records, err := a.store.Query(ctx, store.Query{
		Collection: a.cfg.Collection,
		Limit:      a.cfg.ScanLimit,
	})
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	result := newMonthResult(year, month, SourceFallback)
	seen := make(map[string]bool)

	for _, rec := range records {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true

		day, ok := inferDay(rec.Data, prefix)
		if !ok {
			continue
		}
		order := models.DecodeOrder(rec.ID, rec.Data, a.cfg.Location)
		result.add(day, order.Summary())
	}

	a.logger.Warn("calendar fallback scan used; counts are inferred from serialized records",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("scanned", len(records)),
		zap.Bool("limitReached", len(records) >= a.cfg.ScanLimit),
		zap.Int("inferred", result.Total()))

	return result, nil
}

type dayMatch struct {
	pos int
	day string
}

// inferDay returns the earliest date-shaped substring of the serialized record
// whose canonical day starts with monthPrefix.
func inferDay(data map[string]any, monthPrefix string) (string, bool) {
	trimmed := make(map[string]any, len(data))
	for k, v := range data {
		trimmed[k] = v
	}
	for _, f := range nonDesiredDateFields {
		delete(trimmed, f)
	}

	raw, err := json.Marshal(trimmed)
	if err != nil {
		return "", false
	}
	text := string(raw)

	var matches []dayMatch
	for _, re := range []*regexp.Regexp{isoDayPattern, germanDayPattern} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if day, ok := models.NormalizeDayString(text[loc[0]:loc[1]]); ok {
				matches = append(matches, dayMatch{pos: loc[0], day: day})
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	for _, m := range matches {
		if len(m.day) == len(monthPrefix)+2 && m.day[:len(monthPrefix)] == monthPrefix {
			return m.day, true
		}
	}
	return "", false
}
