package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const (
	peopleCollection      = "people"
	credentialsCollection = "user_credentials"
)

// PeopleRepository implements ports.PeopleRepository using MongoDB.
type PeopleRepository struct {
	people      *mongo.Collection
	credentials *mongo.Collection
}

func NewPeopleRepository(db *mongo.Database) *PeopleRepository {
	return &PeopleRepository{
		people:      db.Collection(peopleCollection),
		credentials: db.Collection(credentialsCollection),
	}
}

type mongoPeople struct {
	ID                string `bson:"_id"`
	Platform          string `bson:"platform"`
	PlatformAccountID string `bson:"platform_account_id"`
	Username          string `bson:"username"`
	ProfileImageURL   string `bson:"profile_image_url,omitempty"`
	CreatedAt         int64  `bson:"created_at"`
}

type mongoCredential struct {
	ID        string `bson:"_id"`
	UserID    string `bson:"user_id"`
	PeopleID  string `bson:"people_id"`
	Platform  string `bson:"platform"`
	IsLogin   bool   `bson:"is_login"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (r *PeopleRepository) FindPeople(ctx context.Context, platform domain.Platform, platformAccountID string) (*domain.People, error) {
	return r.findPeople(ctx, bson.M{"platform": string(platform), "platform_account_id": platformAccountID})
}

func (r *PeopleRepository) FindPeopleByID(ctx context.Context, id string) (*domain.People, error) {
	return r.findPeople(ctx, bson.M{"_id": id})
}

func (r *PeopleRepository) findPeople(ctx context.Context, filter bson.M) (*domain.People, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoPeople
	if err := r.people.FindOne(ctx, filter).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPeopleNotFound
		}
		return nil, fmt.Errorf("find people: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *PeopleRepository) CreatePeople(ctx context.Context, people *domain.People) (*domain.People, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := *people
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	_, err := r.people.InsertOne(ctx, mongoPeople{
		ID:                created.ID,
		Platform:          string(created.Platform),
		PlatformAccountID: created.PlatformAccountID,
		Username:          created.Username,
		ProfileImageURL:   created.ProfileImageURL,
		CreatedAt:         created.CreatedAt.Unix(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a concurrent import of the same persona.
			return r.FindPeople(ctx, created.Platform, created.PlatformAccountID)
		}
		return nil, fmt.Errorf("insert people: %w", err)
	}
	return &created, nil
}

func (r *PeopleRepository) FindCredential(ctx context.Context, userID, peopleID string) (*domain.UserCredential, error) {
	return r.findCredential(ctx, bson.M{"user_id": userID, "people_id": peopleID})
}

func (r *PeopleRepository) FindCredentialByPlatform(ctx context.Context, userID string, platform domain.Platform) (*domain.UserCredential, error) {
	return r.findCredential(ctx, bson.M{"user_id": userID, "platform": string(platform)})
}

func (r *PeopleRepository) findCredential(ctx context.Context, filter bson.M) (*domain.UserCredential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoCredential
	if err := r.credentials.FindOne(ctx, filter).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return mc.toDomain(), nil
}

// UpsertCredential writes the link keyed by (user_id, people_id). The id
// and creation time of an existing link are preserved. A wallet holds one
// link per platform: an upsert colliding with a link to another persona on
// the same platform fails with domain.ErrPlatformAlreadyClaimed.
func (r *PeopleRepository) UpsertCredential(ctx context.Context, cred *domain.UserCredential) (*domain.UserCredential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	id := cred.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	filter := bson.M{"user_id": cred.UserID, "people_id": cred.PeopleID}
	update := bson.M{
		"$set": bson.M{
			"platform":   string(cred.Platform),
			"is_login":   cred.IsLogin,
			"updated_at": now.Unix(),
		},
		"$setOnInsert": bson.M{
			"_id":        id,
			"created_at": createdAt.Unix(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	// A concurrent upsert of the same link also fails on a duplicate key;
	// the second attempt then matches the inserted document.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var mc mongoCredential
		err = r.credentials.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mc)
		if err == nil {
			return mc.toDomain(), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("upsert credential: %w", err)
		}
	}
	return nil, domain.ErrPlatformAlreadyClaimed
}

func (r *PeopleRepository) DeleteCredential(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.credentials.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// EnsureIndexes creates the uniqueness constraints on personas and links.
func (r *PeopleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.people.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "platform", Value: 1}, {Key: "platform_account_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.credentials.Indexes().CreateMany(ctx, credentialIndexes())
	return err
}

// credentialIndexes keeps one link per (wallet, persona) and one persona
// per (wallet, platform).
func credentialIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "people_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "platform", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

func (mp mongoPeople) toDomain() *domain.People {
	return &domain.People{
		ID:                mp.ID,
		Platform:          domain.Platform(mp.Platform),
		PlatformAccountID: mp.PlatformAccountID,
		Username:          mp.Username,
		ProfileImageURL:   mp.ProfileImageURL,
		CreatedAt:         unixToTime(mp.CreatedAt),
	}
}

func (mc mongoCredential) toDomain() *domain.UserCredential {
	return &domain.UserCredential{
		ID:        mc.ID,
		UserID:    mc.UserID,
		PeopleID:  mc.PeopleID,
		Platform:  domain.Platform(mc.Platform),
		IsLogin:   mc.IsLogin,
		CreatedAt: unixToTime(mc.CreatedAt),
		UpdatedAt: unixToTime(mc.UpdatedAt),
	}
}
