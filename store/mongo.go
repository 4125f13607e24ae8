package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-bakery/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var mongoOps = map[Op]string{
	OpEq:  "$eq",
	OpGte: "$gte",
	OpLte: "$lte",
	OpNeq: "$ne",
}

// MongoStore is the Store backed by a MongoDB database. New documents get string
// ids; documents created with ObjectIDs remain addressable by their hex form.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects and pings the server
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// Disconnect closes the client
func (s *MongoStore) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, idFilter(id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, fmt.Errorf("%w: %s/%s", models.ErrNotFound, collection, id)
		}
		return Record{}, models.StoreUnavailable("get", collection, err)
	}
	return toRecord(doc), nil
}

func (s *MongoStore) Query(ctx context.Context, q Query) ([]Record, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, buildFilter(q.Filters), opts)
	if err != nil {
		return nil, models.StoreUnavailable("query", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, models.StoreUnavailable("query", q.Collection, err)
	}

	out := make([]Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toRecord(doc))
	}
	return out, nil
}

func (s *MongoStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()
	_, err := s.db.Collection(collection).InsertOne(ctx, withID(data, id))
	if err != nil {
		return "", models.StoreUnavailable("insert", collection, err)
	}
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, withID(data, id),
		options.Replace().SetUpsert(true))
	if err != nil {
		return models.StoreUnavailable("set", collection, err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, withID(data, id))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s/%s", models.ErrAlreadyExists, collection, id)
		}
		return models.StoreUnavailable("create", collection, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	result, err := s.db.Collection(collection).UpdateOne(ctx, idFilter(id), bson.M{"$set": fields})
	if err != nil {
		return models.StoreUnavailable("update", collection, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", models.ErrNotFound, collection, id)
	}
	return nil
}

// BatchWrite applies ops inside a multi-document transaction (requires a replica set).
func (s *MongoStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if err := validateOps(ops); err != nil {
		return err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return models.StoreUnavailable("batch", "", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			coll := s.db.Collection(op.Collection)
			switch op.Type {
			case WriteSet:
				if _, err := coll.ReplaceOne(sc, bson.M{"_id": op.ID}, withID(op.Data, op.ID),
					options.Replace().SetUpsert(true)); err != nil {
					return nil, err
				}
			case WriteDelete:
				if _, err := coll.DeleteOne(sc, idFilter(op.ID)); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return models.StoreUnavailable("batch", "", err)
	}
	return nil
}

func idFilter(id string) bson.M {
	ids := bson.A{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}
	return bson.M{"_id": bson.M{"$in": ids}}
}

func buildFilter(filters []Filter) bson.M {
	filter := bson.M{}
	for _, f := range filters {
		cond, ok := filter[f.Field].(bson.M)
		if !ok {
			cond = bson.M{}
			filter[f.Field] = cond
		}
		cond[mongoOps[f.Op]] = f.Value
	}
	return filter
}

func withID(data map[string]any, id string) bson.M {
	doc := make(bson.M, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["_id"] = id
	return doc
}

func toRecord(doc bson.M) Record {
	var id string
	switch v := doc["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	default:
		id = fmt.Sprint(v)
	}
	delete(doc, "_id")
	data, _ := fromBSON(doc).(map[string]any)
	return Record{ID: id, Data: data}
}

// fromBSON converts decoded BSON into plain Go values the normalizers understand.
func fromBSON(v any) any {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromBSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromBSON(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	}
	return v
}
