package repository

import (
	"context"
	"errors"
	"time"

	models "github.com/fathima-sithara/mycloud/internal/media"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MediaRepo struct {
	col *mongo.Collection
}

// insertion order: created_at then _id (ObjectID hex sorts by creation time)
var insertionOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func NewMediaRepo(col *mongo.Collection) *MediaRepo {
	return &MediaRepo{col: col}
}

// EnsureIndexes creates the indexes used by listings and lookups.
func (r *MediaRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("owner_created_idx")},
		{Keys: bson.D{{Key: "filename", Value: 1}}, Options: options.Index().SetName("filename_idx")},
		{Keys: insertionOrder, Options: options.Index().SetName("created_idx")},
	})
	return err
}

func (r *MediaRepo) Insert(ctx context.Context, m *models.Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (*models.Media, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

// GetByFilename returns the oldest record with that filename among those f matches.
func (r *MediaRepo) GetByFilename(ctx context.Context, filename string, f Filter) (*models.Media, error) {
	q := f.bson()
	q["filename"] = filename
	return r.findOne(ctx, q, options.FindOne().SetSort(insertionOrder))
}

func (r *MediaRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.Media, error) {
	var m models.Media
	var err error
	if opts != nil {
		err = r.col.FindOne(ctx, filter, opts).Decode(&m)
	} else {
		err = r.col.FindOne(ctx, filter).Decode(&m)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepo) List(ctx context.Context, f Filter) ([]*models.Media, error) {
	return r.find(ctx, f.bson(), options.Find().SetSort(insertionOrder))
}

func (r *MediaRepo) Page(ctx context.Context, f Filter, page, size int) ([]*models.Media, error) {
	skip, limit, ok := pageBounds(page, size)
	if !ok {
		return []*models.Media{}, nil
	}
	opts := options.Find().SetSort(insertionOrder).SetSkip(skip).SetLimit(limit)
	return r.find(ctx, f.bson(), opts)
}

func (r *MediaRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Media, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Media{}
	for cur.Next(ctx) {
		var m models.Media
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

// UpdateMeta sets only keywords and/or visibility and returns the updated record.
func (r *MediaRepo) UpdateMeta(ctx context.Context, id string, p models.Patch) (*models.Media, error) {
	set := patchSet(p)
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	var m models.Media
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func patchSet(p models.Patch) bson.M {
	set := bson.M{}
	if p.Keywords != nil {
		set["keywords"] = *p.Keywords
	}
	if p.Visibility != nil {
		set["visibility"] = *p.Visibility
	}
	return set
}
