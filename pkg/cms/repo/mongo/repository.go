package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/simple-cms/pkg/cms"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// versionField is the document version key written by older tooling
// against the same collections. It is not part of any record.
const versionField = "__v"

// Repository implements cms.Repository on MongoDB, one collection per record type
type Repository struct {
	db *mongo.Database
}

// New creates a repository over an existing database handle
func New(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

// Connect dials MongoDB, verifies the connection and returns a repository
// for the named database.
func Connect(ctx context.Context, uri, dbName string) (*Repository, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return New(client.Database(dbName)), nil
}

// EnsureIndexes creates a unique index for every unique field of every record type
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	for _, t := range cms.RecordTypes() {
		fields := t.UniqueFields()
		if len(fields) == 0 {
			continue
		}

		models := make([]mongo.IndexModel, 0, len(fields))
		for _, field := range fields {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: field, Value: 1}},
				Options: options.Index().SetUnique(true).SetName(field + "_unique"),
			})
		}
		if _, err := r.coll(t).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", t.Collection(), err)
		}
	}
	return nil
}

func (r *Repository) coll(t cms.RecordType) *mongo.Collection {
	return r.db.Collection(t.Collection())
}

func (r *Repository) Insert(ctx context.Context, t cms.RecordType, doc cms.Document) (string, error) {
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}

	body := bson.M{}
	for k, v := range doc {
		if k == cms.StorageIDField {
			continue
		}
		body[k] = v
	}

	res, err := r.coll(t).InsertOne(ctx, body)
	if err != nil {
		return "", handleMongoError("insert", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprint(res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (r *Repository) FindAll(ctx context.Context, t cms.RecordType) ([]cms.Document, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}

	cur, err := r.coll(t).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, handleMongoError("find", err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, handleMongoError("find", err)
	}

	out := make([]cms.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, fromBSON(m))
	}
	return out, nil
}

func (r *Repository) FindByID(ctx context.Context, t cms.RecordType, id string) (cms.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, cms.ErrNotFound
	}
	return r.findOne(ctx, t, bson.M{"_id": oid})
}

func (r *Repository) FindOne(ctx context.Context, t cms.RecordType, field string, value any) (cms.Document, error) {
	return r.findOne(ctx, t, bson.M{field: value})
}

func (r *Repository) findOne(ctx context.Context, t cms.RecordType, filter bson.M) (cms.Document, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}

	var m bson.M
	if err := r.coll(t).FindOne(ctx, filter).Decode(&m); err != nil {
		return nil, handleMongoError("find_one", err)
	}
	return fromBSON(m), nil
}

func (r *Repository) UpdateByID(ctx context.Context, t cms.RecordType, id string, set cms.Document) (cms.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, cms.ErrNotFound
	}

	fields := bson.M{}
	for k, v := range set {
		if k == cms.StorageIDField {
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		return r.findOne(ctx, t, bson.M{"_id": oid})
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m bson.M
	err = r.coll(t).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&m)
	if err != nil {
		return nil, handleMongoError("update", err)
	}
	return fromBSON(m), nil
}

func (r *Repository) DeleteByID(ctx context.Context, t cms.RecordType, id string) (bool, error) {
	if !t.IsValid() {
		return false, fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	res, err := r.coll(t).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, handleMongoError("delete", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *Repository) Close(ctx context.Context) error {
	return r.db.Client().Disconnect(ctx)
}

func handleMongoError(operation string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return cms.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", cms.ErrDuplicate, err)
	default:
		return fmt.Errorf("mongo %s: %w", operation, err)
	}
}

// fromBSON converts a decoded document into a cms.Document with a string _id.
func fromBSON(m bson.M) cms.Document {
	doc := make(cms.Document, len(m))
	for k, v := range m {
		if k == versionField {
			continue
		}
		switch val := v.(type) {
		case primitive.ObjectID:
			doc[k] = val.Hex()
		case primitive.DateTime:
			doc[k] = val.Time().UTC().Format(time.RFC3339)
		default:
			doc[k] = val
		}
	}
	return doc
}
