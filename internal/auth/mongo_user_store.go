package auth

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/google/uuid"
)

type MongoUserStore struct {
	cli  *mongo.Client
	coll *mongo.Collection
}

func NewMongoUserStore(ctx context.Context, uri, db, coll string) (*MongoUserStore, error) {
	opts := options.Client().ApplyURI(uri)
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	// optional ping
	_ = cli.Ping(dialCtx, readpref.Primary())

	c := cli.Database(db).Collection(coll)

	// The unique index is authoritative for identifier collisions; the
	// gateway's pre-check only improves the common-case error message.
	_, _ = c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoUserStore{cli: cli, coll: c}, nil
}

type userDoc struct {
	ID         string    `bson:"_id"`
	Identifier string    `bson:"identifier"`
	SecretHash string    `bson:"secret_hash"`
	Roles      []Role    `bson:"roles"`
	CreatedAt  time.Time `bson:"created_at"`
}

// Add inserts a new user. Returns ErrIdentifierTaken if the identifier
// already exists.
func (s *MongoUserStore) Add(u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.Identifier = strings.TrimSpace(u.Identifier)

	_, err := s.coll.InsertOne(context.Background(), userDoc{
		ID:         u.ID,
		Identifier: u.Identifier,
		SecretHash: u.SecretHash,
		Roles:      u.Roles,
		CreatedAt:  u.CreatedAt,
	})
	if wex, ok := err.(mongo.WriteException); ok {
		for _, we := range wex.WriteErrors {
			if we.Code == 11000 { // duplicate key
				return ErrIdentifierTaken
			}
		}
	}
	return err
}

func (s *MongoUserStore) FindByIdentifier(identifier string) (*User, error) {
	var doc userDoc
	err := s.coll.FindOne(context.Background(), bson.M{"identifier": strings.TrimSpace(identifier)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.user(), nil
}

func (s *MongoUserStore) List() ([]*User, error) {
	ctx := context.Background()
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "identifier", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.user())
	}
	return out, cur.Err()
}

func (d *userDoc) user() *User {
	return &User{
		ID:         d.ID,
		Identifier: d.Identifier,
		SecretHash: d.SecretHash,
		Roles:      d.Roles,
		CreatedAt:  d.CreatedAt,
	}
}
