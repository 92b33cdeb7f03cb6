package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const (
	balancesCollection     = "user_currencies"
	transactionsCollection = "transactions"

	rewardTransaction = "signup_reward"
)

// NetworkFinder resolves networks; IdentityRepository satisfies it.
type NetworkFinder interface {
	FindNetwork(ctx context.Context, id string) (*domain.Network, error)
}

// CurrencyStore implements ports.CurrencyService on MongoDB. It keeps one
// balance snapshot per (user, network, currency) and a transaction journal.
type CurrencyStore struct {
	balances     *mongo.Collection
	transactions *mongo.Collection
	networks     NetworkFinder
	rewardAmount string
}

// NewCurrencyStore builds a CurrencyStore. rewardAmount is the decimal
// amount credited on signup; an empty or "0" amount disables the reward.
func NewCurrencyStore(db *mongo.Database, networks NetworkFinder, rewardAmount string) *CurrencyStore {
	return &CurrencyStore{
		balances:     db.Collection(balancesCollection),
		transactions: db.Collection(transactionsCollection),
		networks:     networks,
		rewardAmount: rewardAmount,
	}
}

// SeedBalances creates a zero balance for every currency of the network.
// Existing balances are left untouched.
func (s *CurrencyStore) SeedBalances(ctx context.Context, userID, networkID string) error {
	network, err := s.networks.FindNetwork(ctx, networkID)
	if err != nil {
		return fmt.Errorf("seed balances: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Unix()
	for _, currency := range network.Currencies {
		_, err := s.balances.UpdateOne(ctx,
			bson.M{"_id": balanceKey(userID, networkID, currency)},
			bson.M{"$setOnInsert": bson.M{
				"user_id":      userID,
				"network_id":   networkID,
				"currency_id":  currency,
				"balance":      "0",
				"created_at":   now,
				"refreshed_at": now,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed balance %s: %w", currency, err)
		}
	}
	return nil
}

// RefreshBalance stamps the user's snapshots on networkID as refreshed so
// the balance worker picks them up.
func (s *CurrencyStore) RefreshBalance(ctx context.Context, userID, networkID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.balances.UpdateMany(ctx,
		bson.M{"user_id": userID, "network_id": networkID},
		bson.M{"$set": bson.M{"refreshed_at": time.Now().UTC().Unix(), "stale": true}},
	)
	if err != nil {
		return fmt.Errorf("refresh balance: %w", err)
	}
	return nil
}

// GrantSignupReward journals the one-off signup reward for walletID. The
// journal id is derived from the wallet so a replay is a no-op.
func (s *CurrencyStore) GrantSignupReward(ctx context.Context, walletID string, walletType domain.WalletType) error {
	if s.rewardAmount == "" || s.rewardAmount == "0" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.transactions.InsertOne(ctx, bson.M{
		"_id":         rewardTransaction + ":" + walletID,
		"type":        rewardTransaction,
		"to":          walletID,
		"wallet_type": string(walletType),
		"amount":      s.rewardAmount,
		"created_at":  time.Now().UTC().Unix(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("grant signup reward: %w", err)
	}
	return nil
}

func balanceKey(userID, networkID, currency string) string {
	return userID + ":" + networkID + ":" + currency
}

const (
	friendsCollection  = "friends"
	activityCollection = "activity_logs"
)

// ConnectionStore implements ports.ConnectionService. New users are
// connected to a single official account, looked up by username.
type ConnectionStore struct {
	users            *mongo.Collection
	friends          *mongo.Collection
	officialUsername string
}

func NewConnectionStore(db *mongo.Database, officialUsername string) *ConnectionStore {
	return &ConnectionStore{
		users:            db.Collection(usersCollection),
		friends:          db.Collection(friendsCollection),
		officialUsername: officialUsername,
	}
}

// CreateDefaultConnection connects userID to the official account. It is a
// no-op when no official account is configured or registered.
func (s *ConnectionStore) CreateDefaultConnection(ctx context.Context, userID string) error {
	if s.officialUsername == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var official mongoUser
	if err := s.users.FindOne(ctx, bson.M{"username": s.officialUsername}).Decode(&official); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return fmt.Errorf("find official account: %w", err)
	}
	officialID := official.ID.Hex()
	if officialID == userID {
		return nil
	}

	_, err := s.friends.UpdateOne(ctx,
		bson.M{"_id": userID + ":" + officialID},
		bson.M{"$setOnInsert": bson.M{
			"requestor_id": userID,
			"requestee_id": officialID,
			"status":       "approved",
			"created_at":   time.Now().UTC().Unix(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("create default connection: %w", err)
	}
	return nil
}

// ActivityStore implements ports.ActivityLog.
type ActivityStore struct {
	coll *mongo.Collection
}

func NewActivityStore(db *mongo.Database) *ActivityStore {
	return &ActivityStore{coll: db.Collection(activityCollection)}
}

// Record appends entry. Entries are keyed by type, user and reference so a
// redelivered task does not log twice.
func (s *ActivityStore) Record(ctx context.Context, entry domain.ActivityEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": string(entry.Type) + ":" + entry.UserID + ":" + entry.ReferenceID},
		bson.M{"$setOnInsert": bson.M{
			"type":           string(entry.Type),
			"user_id":        entry.UserID,
			"reference_id":   entry.ReferenceID,
			"reference_type": entry.ReferenceType,
			"created_at":     createdAt.Unix(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}
