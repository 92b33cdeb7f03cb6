package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const (
	usersCollection    = "users"
	walletsCollection  = "wallets"
	networksCollection = "networks"
	settingsCollection = "user_settings"

	networkCacheTTL = 5 * time.Minute
)

// IdentityRepository implements ports.IdentityRepository using MongoDB.
// Networks change rarely and are cached in memory.
type IdentityRepository struct {
	users    *mongo.Collection
	wallets  *mongo.Collection
	networks *mongo.Collection
	settings *mongo.Collection
	cache    *gocache.Cache
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		users:    db.Collection(usersCollection),
		wallets:  db.Collection(walletsCollection),
		networks: db.Collection(networksCollection),
		settings: db.Collection(settingsCollection),
		cache:    gocache.New(networkCacheTTL, time.Minute),
	}
}

type mongoUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Username    string             `bson:"username"`
	Name        string             `bson:"name"`
	Nonce       int64              `bson:"nonce"`
	Permissions []string           `bson:"permissions"`
	CreatedAt   int64              `bson:"created_at"`
	UpdatedAt   int64              `bson:"updated_at"`
}

type mongoWallet struct {
	ID        string `bson:"_id"`
	Type      string `bson:"type"`
	NetworkID string `bson:"network_id"`
	Primary   bool   `bson:"primary"`
	UserID    string `bson:"user_id"`
	CreatedAt int64  `bson:"created_at"`
}

type mongoNetwork struct {
	ID         string   `bson:"_id"`
	RPCURL     string   `bson:"rpc_url"`
	ChainID    int64    `bson:"chain_id,omitempty"`
	Currencies []string `bson:"currencies,omitempty"`
}

func (r *IdentityRepository) WalletExists(ctx context.Context, address string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.wallets.CountDocuments(ctx, bson.M{"_id": address}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count wallets: %w", err)
	}
	return n > 0, nil
}

func (r *IdentityRepository) NetworkExists(ctx context.Context, id string) (bool, error) {
	if _, err := r.FindNetwork(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUnknownNetwork) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *IdentityRepository) FindNetwork(ctx context.Context, id string) (*domain.Network, error) {
	if cached, ok := r.cache.Get(id); ok {
		n := cached.(domain.Network)
		return &n, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mn mongoNetwork
	if err := r.networks.FindOne(ctx, bson.M{"_id": id}).Decode(&mn); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUnknownNetwork
		}
		return nil, fmt.Errorf("find network: %w", err)
	}

	n := domain.Network{ID: mn.ID, RPCURL: mn.RPCURL, ChainID: mn.ChainID, Currencies: mn.Currencies}
	r.cache.Set(id, n, gocache.DefaultExpiration)
	return &n, nil
}

func (r *IdentityRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *IdentityRepository) FindWalletWithOwner(ctx context.Context, id string, walletType domain.WalletType) (*domain.Wallet, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if walletType != "" {
		filter["type"] = string(walletType)
	}

	var mw mongoWallet
	if err := r.wallets.FindOne(ctx, filter).Decode(&mw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, domain.ErrWalletNotFound
		}
		return nil, nil, fmt.Errorf("find wallet: %w", err)
	}

	oid, err := primitive.ObjectIDFromHex(mw.UserID)
	if err != nil {
		return nil, nil, domain.ErrUserNotFound
	}
	var mu mongoUser
	if err := r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("find wallet owner: %w", err)
	}

	return mw.toDomain(), mu.toDomain(), nil
}

// CreateUser inserts the user and its first wallet. The user is removed
// again if the wallet cannot be stored.
func (r *IdentityRepository) CreateUser(ctx context.Context, user *domain.User, wallet *domain.Wallet) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	perms := make([]string, 0, len(user.Permissions))
	for _, p := range user.Permissions {
		perms = append(perms, string(p))
	}
	doc := mongoUser{
		Username:    user.Username,
		Name:        user.Name,
		Nonce:       user.Nonce,
		Permissions: perms,
		CreatedAt:   user.CreatedAt.Unix(),
		UpdatedAt:   user.UpdatedAt.Unix(),
	}

	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)

	_, err = r.wallets.InsertOne(ctx, mongoWallet{
		ID:        wallet.ID,
		Type:      string(wallet.Type),
		NetworkID: wallet.NetworkID,
		Primary:   wallet.Primary,
		UserID:    oid.Hex(),
		CreatedAt: wallet.CreatedAt.Unix(),
	})
	if err != nil {
		_, _ = r.users.DeleteOne(ctx, bson.M{"_id": oid})
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateWallet
		}
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	created := *user
	created.ID = oid.Hex()
	wallet.UserID = created.ID
	return &created, nil
}

func (r *IdentityRepository) UpdateUserNonce(ctx context.Context, userID string, nonce int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"nonce": nonce, "updated_at": time.Now().UTC().Unix()},
	})
	if err != nil {
		return fmt.Errorf("update nonce: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *IdentityRepository) SetPrimaryWallet(ctx context.Context, userID string, walletType domain.WalletType) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.wallets.UpdateMany(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"primary": false}},
	); err != nil {
		return fmt.Errorf("demote wallets: %w", err)
	}
	if _, err := r.wallets.UpdateMany(ctx,
		bson.M{"user_id": userID, "type": string(walletType)},
		bson.M{"$set": bson.M{"primary": true}},
	); err != nil {
		return fmt.Errorf("promote wallets: %w", err)
	}
	return nil
}

// SeedSettings writes the default account and notification settings. It
// only fills missing documents, so repeated runs are harmless.
func (r *IdentityRepository) SeedSettings(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.settings.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"account_privacy": "public",
			"social_privacy":  "public",
			"notifications": bson.M{
				"comments":  true,
				"mentions":  true,
				"friends":   true,
				"tips":      true,
				"upvotes":   true,
				"followers": true,
			},
			"created_at": time.Now().UTC().Unix(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique constraints the repository relies on.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.wallets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}}},
	})
	return err
}

func (mu mongoUser) toDomain() *domain.User {
	perms := make([]domain.Permission, 0, len(mu.Permissions))
	for _, p := range mu.Permissions {
		perms = append(perms, domain.Permission(p))
	}
	return &domain.User{
		ID:          mu.ID.Hex(),
		Username:    mu.Username,
		Name:        mu.Name,
		Nonce:       mu.Nonce,
		Permissions: perms,
		CreatedAt:   unixToTime(mu.CreatedAt),
		UpdatedAt:   unixToTime(mu.UpdatedAt),
	}
}

func (mw mongoWallet) toDomain() *domain.Wallet {
	return &domain.Wallet{
		ID:        mw.ID,
		Type:      domain.WalletType(mw.Type),
		NetworkID: mw.NetworkID,
		Primary:   mw.Primary,
		UserID:    mw.UserID,
		CreatedAt: unixToTime(mw.CreatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
