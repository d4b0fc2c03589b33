package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig locates the profiles collection.
type MongoConfig struct {
	URL        string
	Database   string
	Collection string        // default "profiles"
	Timeout    time.Duration // server selection timeout, default 10s
}

// MongoStore reads profiles from a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var profileProjection = bson.D{
	{Key: "_id", Value: 0},
	{Key: "firstName", Value: 1},
	{Key: "lastName", Value: 1},
	{Key: "slug", Value: 1},
	{Key: "areaOfExpertise", Value: 1},
	{Key: "type", Value: 1},
	{Key: "currentLocation", Value: 1},
	{Key: "careerSummary", Value: 1},
}

// NewMongoStore connects and pings the server.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("MONGODB_URL not set")
	}
	if cfg.Database == "" {
		return nil, errors.New("DB_NAME not set")
	}
	if cfg.Collection == "" {
		cfg.Collection = "profiles"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URL).
		SetServerSelectionTimeout(cfg.Timeout).
		SetAppName("promptlab"))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Profiles returns every document of the collection, projected on the
// profile fields. Non-string field values (arrays, numbers) are rendered as
// text.
func (s *MongoStore) Profiles(ctx context.Context) ([]Profile, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetProjection(profileProjection))
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck

	var out []Profile
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out = append(out, profileFromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

// Upsert replaces documents by slug, inserting missing ones.
func (s *MongoStore) Upsert(ctx context.Context, profiles []Profile) (int, error) {
	prepared, err := prepare(profiles)
	if err != nil {
		return 0, err
	}
	if len(prepared) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, len(prepared))
	for i, p := range prepared {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "slug", Value: p.Slug}}).
			SetReplacement(p).
			SetUpsert(true)
	}
	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("upsert profiles: %w", err)
	}
	return int(res.UpsertedCount + res.MatchedCount), nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func profileFromDoc(doc bson.M) Profile {
	return Profile{
		FirstName:       stringField(doc, "firstName"),
		LastName:        stringField(doc, "lastName"),
		Slug:            stringField(doc, "slug"),
		AreaOfExpertise: stringField(doc, "areaOfExpertise"),
		Type:            stringField(doc, "type"),
		CurrentLocation: stringField(doc, "currentLocation"),
		CareerSummary:   stringField(doc, "careerSummary"),
	}
}

// stringField renders doc[key]; missing and null values are "".
func stringField(doc bson.M, key string) string {
	switch v := doc[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bson.A:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
