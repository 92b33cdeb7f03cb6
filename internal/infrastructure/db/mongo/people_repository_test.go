package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/chainsocial/social-api/internal/core/domain"
)

func duplicateKeyResponse() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    11000,
		Name:    "DuplicateKey",
		Message: "E11000 duplicate key error collection: social.user_credentials index: user_id_1_platform_1",
	})
}

func testCredential() *domain.UserCredential {
	return &domain.UserCredential{
		ID:       "c-1",
		UserID:   "0x1111111111111111111111111111111111111111",
		PeopleID: "p-2",
		Platform: domain.PlatformTwitter,
		IsLogin:  true,
	}
}

func TestPeopleRepository_UpsertCredential(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second persona on a platform", func(mt *mtest.T) {
		repo := &PeopleRepository{people: mt.Coll, credentials: mt.Coll}
		mt.AddMockResponses(duplicateKeyResponse(), duplicateKeyResponse())

		_, err := repo.UpsertCredential(context.Background(), testCredential())
		require.ErrorIs(mt, err, domain.ErrPlatformAlreadyClaimed)
	})

	mt.Run("concurrent insert of the same link", func(mt *mtest.T) {
		repo := &PeopleRepository{people: mt.Coll, credentials: mt.Coll}
		mt.AddMockResponses(
			duplicateKeyResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: "c-0"},
				{Key: "user_id", Value: "0x1111111111111111111111111111111111111111"},
				{Key: "people_id", Value: "p-2"},
				{Key: "platform", Value: "twitter"},
				{Key: "is_login", Value: true},
				{Key: "created_at", Value: int64(1700000000)},
				{Key: "updated_at", Value: int64(1700000100)},
			}}),
		)

		cred, err := repo.UpsertCredential(context.Background(), testCredential())
		require.NoError(mt, err)
		require.Equal(mt, "c-0", cred.ID)
		require.Equal(mt, domain.PlatformTwitter, cred.Platform)
	})

	mt.Run("other failures are wrapped", func(mt *mtest.T) {
		repo := &PeopleRepository{people: mt.Coll, credentials: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad"}))

		_, err := repo.UpsertCredential(context.Background(), testCredential())
		require.Error(mt, err)
		require.NotErrorIs(mt, err, domain.ErrPlatformAlreadyClaimed)
	})
}

func TestCredentialIndexes_AreUnique(t *testing.T) {
	indexes := credentialIndexes()
	require.Len(t, indexes, 2)

	var keys []bson.D
	for _, idx := range indexes {
		require.NotNil(t, idx.Options)
		require.NotNil(t, idx.Options.Unique)
		require.True(t, *idx.Options.Unique)
		keys = append(keys, idx.Keys.(bson.D))
	}
	require.Contains(t, keys, bson.D{{Key: "user_id", Value: 1}, {Key: "platform", Value: 1}})
	require.Contains(t, keys, bson.D{{Key: "user_id", Value: 1}, {Key: "people_id", Value: 1}})
}
