package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const postsCollection = "posts"

// PostRepository implements ports.PostRepository using MongoDB.
type PostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{coll: db.Collection(postsCollection)}
}

type mongoPost struct {
	ID            string               `bson:"_id"`
	WalletAddress string               `bson:"wallet_address"`
	PlatformUser  *domain.PlatformUser `bson:"platform_user,omitempty"`
}

// FindEscrowPosts returns imported posts of the persona in filter that
// still have an escrow wallet.
func (r *PostRepository) FindEscrowPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	wallet := bson.M{"$exists": true, "$ne": ""}
	if filter.ExcludeWallet != "" {
		wallet["$nin"] = bson.A{filter.ExcludeWallet}
	}
	query := bson.M{
		"platform_user.platform":            string(filter.Platform),
		"platform_user.platform_account_id": filter.PlatformAccountID,
		"wallet_address":                    wallet,
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetProjection(bson.M{
		"_id":            1,
		"wallet_address": 1,
		"platform_user":  1,
	}))
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoPost
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, &domain.Post{ID: d.ID, WalletAddress: d.WalletAddress, PlatformUser: d.PlatformUser})
	}
	return posts, nil
}

// EnsureIndexes indexes posts by their source persona.
func (r *PostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "platform_user.platform", Value: 1},
			{Key: "platform_user.platform_account_id", Value: 1},
		},
	})
	return err
}
