// internal/auth/service_test.go
package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/db"
)

type fakeUserStore struct {
	users  map[string]*db.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*db.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, passwordHash string) (*db.User, error) {
	if _, exists := f.users[username]; exists {
		return nil, apperr.Newf(apperr.CodeConflict, "username %q is already taken", username)
	}
	f.nextID++
	user := &db.User{ID: f.nextID, Username: username, PasswordHash: passwordHash}
	f.users[username] = user
	return user, nil
}

func (f *fakeUserStore) FindByUsername(_ context.Context, username string) (*db.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	return user, nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (*db.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "user not found")
}

func newTestAuthService() *Service {
	return NewService(newFakeUserStore(), NewTokenManager("test-signing-secret"))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService()

	user, token, err := svc.Register(context.Background(), "alice", "Str0ngP@ss1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "Str0ngP@ss1", user.PasswordHash)

	// The registration token is bound to alice's id.
	userID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	loggedIn, loginToken, err := svc.Login(context.Background(), "alice", "Str0ngP@ss1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	userID, err = svc.Verify(loginToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	svc := newTestAuthService()

	for _, password := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		_, _, err := svc.Register(context.Background(), "bob", password)
		require.Error(t, err, password)
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err), password)
	}
}

func TestRegisterRejectsBadUsernames(t *testing.T) {
	svc := newTestAuthService()

	for _, username := range []string{"", "ab", "has space", "way-too!strange"} {
		_, _, err := svc.Register(context.Background(), username, "Str0ngP@ss1")
		require.Error(t, err, username)
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err), username)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestAuthService()

	_, _, err := svc.Register(context.Background(), "alice", "Str0ngP@ss1")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "alice", "An0therP@ss")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestLoginFailuresAreOpaque(t *testing.T) {
	svc := newTestAuthService()

	_, _, err := svc.Register(context.Background(), "alice", "Str0ngP@ss1")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(context.Background(), "alice", "WrongP@ss1")
	_, _, unknownUser := svc.Login(context.Background(), "mallory", "Str0ngP@ss1")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(wrongPassword))
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(unknownUser))
	// Same message either way, so usernames cannot be probed.
	assert.Equal(t, apperr.MessageOf(wrongPassword), apperr.MessageOf(unknownUser))
}

func TestVerifyRejectsForgedTokens(t *testing.T) {
	svc := newTestAuthService()
	other := NewService(newFakeUserStore(), NewTokenManager("different-secret"))

	_, token, err := other.Register(context.Background(), "alice", "Str0ngP@ss1")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	_, err = svc.Verify("not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}
