package devstack

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aisocialapp/appcore/internal/platform"
)

// DocTable serves one MongoDB-backed collection. Documents keep the
// wire's integer ids: each insert draws the next ordinal from a shared
// counters collection and stores it as _id.
type DocTable struct {
	collection *mongo.Collection
	counters   *mongo.Collection
	name       string
}

// NewDocTable creates a document table adapter.
func NewDocTable(db *mongo.Database, name string) *DocTable {
	return &DocTable{
		collection: db.Collection(name),
		counters:   db.Collection("counters"),
		name:       name,
	}
}

func (t *DocTable) Select(ctx context.Context, q platform.Query) ([]platform.Record, error) {
	filter, err := bsonFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	findOptions := options.Find()
	if len(q.Order) > 0 {
		sortDoc := bson.D{}
		for _, o := range q.Order {
			dir := 1
			if o.Descending {
				dir = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: docColumn(o.Column), Value: dir})
		}
		findOptions.SetSort(sortDoc)
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		findOptions.SetSkip(int64(q.Offset))
	}

	cursor, err := t.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	records := make([]platform.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, projectColumns(docToRecord(doc), q.Columns))
	}
	return records, nil
}

func (t *DocTable) Insert(ctx context.Context, rec platform.Record) (platform.Record, error) {
	id, err := t.nextID(ctx)
	if err != nil {
		return nil, err
	}
	doc := bson.M{"_id": id, "created_at": time.Now().UTC()}
	for k, v := range rec {
		if k == "id" || k == "created_at" {
			continue
		}
		doc[k] = v
	}
	if _, err := t.collection.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return docToRecord(doc), nil
}

func (t *DocTable) Update(ctx context.Context, changes platform.Record, f platform.Filter) ([]platform.Record, error) {
	filter, err := bsonFilter(f)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	for k, v := range changes {
		if k == "id" {
			continue
		}
		set[docColumn(k)] = v
	}
	if _, err := t.collection.UpdateMany(ctx, filter, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return t.Select(ctx, platform.Query{Collection: t.name, Filter: f})
}

func (t *DocTable) Delete(ctx context.Context, f platform.Filter) ([]platform.Record, error) {
	deleted, err := t.Select(ctx, platform.Query{Collection: t.name, Filter: f})
	if err != nil {
		return nil, err
	}
	filter, err := bsonFilter(f)
	if err != nil {
		return nil, err
	}
	if _, err := t.collection.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return deleted, nil
}

// nextID draws the next ordinal id for the collection from the counters
// collection, creating the counter on first use.
func (t *DocTable) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := t.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": t.name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate id for %s: %w", t.name, err)
	}
	return counter.Seq, nil
}

// bsonFilter translates the condition tree into a MongoDB filter.
func bsonFilter(f platform.Filter) (bson.M, error) {
	if f == nil {
		return bson.M{}, nil
	}
	switch ff := f.(type) {
	case platform.Eq:
		return bson.M{docColumn(ff.Column): ff.Value}, nil
	case platform.ILike:
		return bson.M{docColumn(ff.Column): bson.M{
			"$regex":   patternToRegex(ff.Pattern),
			"$options": "i",
		}}, nil
	case platform.In:
		return bson.M{docColumn(ff.Column): bson.M{"$in": ff.Values}}, nil
	case platform.And:
		children, err := bsonChildren(ff)
		if err != nil {
			return nil, err
		}
		return bson.M{"$and": children}, nil
	case platform.Or:
		children, err := bsonChildren(ff)
		if err != nil {
			return nil, err
		}
		return bson.M{"$or": children}, nil
	default:
		return nil, fmt.Errorf("unsupported filter %T", f)
	}
}

func bsonChildren(children []platform.Filter) ([]bson.M, error) {
	out := make([]bson.M, 0, len(children))
	for _, child := range children {
		m, err := bsonFilter(child)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// docColumn maps the wire id column onto the document key.
func docColumn(column string) string {
	if column == "id" {
		return "_id"
	}
	return column
}

// patternToRegex converts a SQL-style pattern into an anchored regex.
func patternToRegex(pattern string) string {
	parts := strings.Split(pattern, "%")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	return "^" + strings.Join(parts, ".*") + "$"
}

// docToRecord converts a decoded document into a wire record, mapping
// _id back to id and BSON-native values to their JSON forms.
func docToRecord(doc bson.M) platform.Record {
	rec := make(platform.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			k = "id"
		}
		rec[k] = bsonValue(v)
	}
	return rec
}

func bsonValue(v any) any {
	switch vv := v.(type) {
	case primitive.DateTime:
		return vv.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return vv.UTC().Format(time.RFC3339Nano)
	case int32:
		return int64(vv)
	case primitive.A:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = bsonValue(e)
		}
		return out
	default:
		return v
	}
}
