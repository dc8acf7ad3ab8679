package session

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nirmal8344/ScramblerKey/internal/crypto"
	"github.com/nirmal8344/ScramblerKey/internal/keyboard"
)

// MongoStore persists sessions in a collection with a TTL index on the
// expiry field. The secret buffer is sealed before it is written; the
// session id is the associated data, so sealed buffers cannot be moved
// between records.
type MongoStore struct {
	cli    *mongo.Client
	coll   *mongo.Collection
	ttl    time.Duration
	sealer *crypto.Sealer
}

type sessionDoc struct {
	ID           string     `bson:"_id"`
	Layout       [][]string `bson:"layout"`
	Identifier   string     `bson:"identifier_buffer"`
	SealedSecret []byte     `bson:"secret_buffer"`
	Active       int32      `bson:"active_field"`
	CreatedAt    time.Time  `bson:"created_at"`
	ExpiresAt    time.Time  `bson:"expires_at"`
}

func NewMongoStore(ctx context.Context, uri, db, coll string, ttl time.Duration, sealer *crypto.Sealer) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	if sealer == nil {
		return nil, errors.New("sealer required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	c := cli.Database(db).Collection(coll)

	// Mongo reaps expired sessions itself; access-time checks below
	// cover the reaper's delay.
	_, _ = c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})

	return &MongoStore{cli: cli, coll: c, ttl: ttl, sealer: sealer}, nil
}

func (m *MongoStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		var doc sessionDoc
		err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		switch {
		case err == mongo.ErrNoDocuments:
			// fall through to create
		case err != nil:
			return nil, err
		default:
			s, derr := m.decode(&doc)
			if derr != nil {
				return nil, derr
			}
			if !s.Expired(time.Now()) {
				return s, nil
			}
		}
	}

	s := newSession(id, m.ttl)
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MongoStore) Save(ctx context.Context, s *Session) error {
	sealed, err := m.sealer.Seal([]byte(s.Secret), []byte(s.ID))
	if err != nil {
		return err
	}
	doc := bson.M{
		"layout":            [][]string(s.Layout),
		"identifier_buffer": s.Identifier,
		"secret_buffer":     sealed,
		"active_field":      int32(s.Active),
		"created_at":        s.CreatedAt,
		"expires_at":        s.ExpiresAt,
	}
	opts := options.Update().SetUpsert(true)
	_, err = m.coll.UpdateByID(ctx, s.ID, bson.M{"$set": doc}, opts)
	return err
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.cli.Disconnect(ctx)
}

func (m *MongoStore) decode(doc *sessionDoc) (*Session, error) {
	secret, err := m.sealer.Open(doc.SealedSecret, []byte(doc.ID))
	if err != nil {
		return nil, err
	}
	field := Field(doc.Active)
	if field != FieldSecret {
		field = FieldIdentifier
	}
	return &Session{
		ID:         doc.ID,
		Layout:     keyboard.Layout(doc.Layout),
		Identifier: doc.Identifier,
		Secret:     string(secret),
		Active:     field,
		CreatedAt:  doc.CreatedAt,
		ExpiresAt:  doc.ExpiresAt,
	}, nil
}
