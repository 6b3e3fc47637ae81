package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/chatauth/services/jwt"
	"github.com/tech-arch1tect/chatauth/services/refreshtoken"
	"github.com/tech-arch1tect/chatauth/services/tokenfamily"
	"github.com/tech-arch1tect/chatauth/testutils"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	codec   *jwt.Service
	store   *tokenfamily.Store
	service *Service
}

func setup(t *testing.T) *fixture {
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, append(tokenfamily.Models(), &User{})...)
	codec := jwt.NewService(cfg, nil)
	store := tokenfamily.NewStore(db, nil)
	rotation := refreshtoken.NewService(codec, store, cfg, nil)

	service, err := NewService(cfg, db, rotation, codec, nil)
	require.NoError(t, err)

	return &fixture{db: db, codec: codec, store: store, service: service}
}

type failingFamilies struct{}

func (failingFamilies) NewFamily(context.Context, uint, string) (string, error) {
	return "", errors.New("database is locked")
}

func TestService_Signup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := testutils.TestUsers.Alice

	user, err := f.service.Signup(ctx, alice.Username, alice.Password)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, alice.Username, user.Username)
	assert.NotEqual(t, alice.Password, user.PasswordHash)

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.service.Signup(ctx, alice.Username, alice.Password)
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("duplicate differing only in case", func(t *testing.T) {
		_, err := f.service.Signup(ctx, "  ALICE@example.com ", alice.Password)
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("password too short", func(t *testing.T) {
		_, err := f.service.Signup(ctx, "short@example.com", testutils.TestPasswords.TooShort)
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("password too long", func(t *testing.T) {
		_, err := f.service.Signup(ctx, "long@example.com", testutils.TestPasswords.TooLong)
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("empty username", func(t *testing.T) {
		_, err := f.service.Signup(ctx, "   ", testutils.TestPasswords.Valid)
		assert.ErrorIs(t, err, ErrInvalidUsername)
	})
}

func TestService_Login(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := testutils.TestUsers.Alice

	user, err := f.service.Signup(ctx, alice.Username, alice.Password)
	require.NoError(t, err)

	pair, err := f.service.Login(ctx, alice.Username, alice.Password, "Firefox on Linux")
	require.NoError(t, err)
	assert.Equal(t, f.codec.AccessExpirySeconds(), pair.ExpiresIn)

	access, err := f.codec.Verify(pair.AccessToken, jwt.RoleAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, access.UserID)

	refresh, err := f.codec.Verify(pair.RefreshToken, jwt.RoleRefresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refresh.UserID)

	familyID, err := f.store.FindFamilyByToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	family, err := f.store.Family(ctx, familyID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, family.UserID)
	assert.Equal(t, "Firefox on Linux", family.DeviceInfo)

	t.Run("each login starts its own family", func(t *testing.T) {
		second, err := f.service.Login(ctx, alice.Username, alice.Password, "")
		require.NoError(t, err)

		otherFamily, err := f.store.FindFamilyByToken(ctx, second.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, familyID, otherFamily)
	})
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := testutils.TestUsers.Alice

	_, err := f.service.Signup(ctx, alice.Username, alice.Password)
	require.NoError(t, err)

	_, unknownErr := f.service.Login(ctx, "nobody@example.com", alice.Password, "")
	_, wrongErr := f.service.Login(ctx, alice.Username, testutils.TestPasswords.Wrong, "")

	require.ErrorIs(t, unknownErr, ErrWrongCredentials)
	require.ErrorIs(t, wrongErr, ErrWrongCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	var families int64
	require.NoError(t, f.db.Model(&tokenfamily.TokenFamily{}).Count(&families).Error)
	assert.Zero(t, families)
}

func TestService_LoginStorageFailure(t *testing.T) {
	t.Run("family cannot be created", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()
		alice := testutils.TestUsers.Alice

		_, err := f.service.Signup(ctx, alice.Username, alice.Password)
		require.NoError(t, err)

		f.service.rotation = failingFamilies{}
		_, err = f.service.Login(ctx, alice.Username, alice.Password, "")
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.NotErrorIs(t, err, ErrWrongCredentials)
	})

	t.Run("user table unavailable", func(t *testing.T) {
		f := setup(t)
		testutils.CloseTestDB(t, f.db)

		_, err := f.service.Login(context.Background(), "alice@example.com", "whatever1", "")
		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

func TestService_UserByID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, "carol@example.com", testutils.TestPasswords.Valid)
	require.NoError(t, err)

	user, err := f.service.UserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Username)

	_, err = f.service.UserByID(ctx, created.ID+100)
	assert.Error(t, err)
}

func TestDeviceSummary(t *testing.T) {
	assert.Equal(t, unknownDevice, DeviceSummary(""))

	firefox := DeviceSummary("Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")
	assert.Contains(t, firefox, "Firefox")
	assert.Contains(t, firefox, "Linux")
	assert.Contains(t, firefox, "(Desktop)")

	iphone := DeviceSummary("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Contains(t, iphone, "(Mobile)")
}
