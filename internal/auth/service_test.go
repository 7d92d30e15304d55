package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	testUsername     = "testuser"
	testPassword     = "testpass"
	testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i" // testpass
	testUsers        = map[string]User{
		testUsername: {
			Username:     testUsername,
			PasswordHash: testPasswordHash,
		},
	}
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func sessionJSON(t *testing.T, username string, createdAt time.Time) []byte {
	t.Helper()
	sessionBytes, err := json.Marshal(LoginSession{
		Username:  username,
		CreatedAt: createdAt.Unix(),
	})
	require.NoError(t, err)
	return sessionBytes
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(testUsers, time.Hour, db)
	require.NotNil(t, authService)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, sessionJSON(t, testUsername, now), 0).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := authService.Login(context.Background(), testUsername, testPassword, now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestService_Login_WrongCredentials(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(testUsers, time.Hour, db)

	token, err := authService.Login(context.Background(), testUsername, "invalid_pass", time.Now())
	assert.ErrorIs(t, err, ErrWrongCredentials)
	assert.Empty(t, token)

	token, err = authService.Login(context.Background(), "who-dis", testPassword, time.Now())
	assert.ErrorIs(t, err, ErrWrongCredentials)
	assert.Empty(t, token)
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(testUsers, time.Hour, db)

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken
	now := time.Now()

	mock.ExpectGet(sessionKey).SetVal(string(sessionJSON(t, testUsername, now)))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, loggedOut)
}

func TestLoadUsers(t *testing.T) {
	usersPath := filepath.Join(t.TempDir(), "users.json")
	usersJSON := `[
		{"username": "mila", "password_hash": "hash1"},
		{"username": "dusan", "password_hash": "hash2"}
	]`
	require.NoError(t, os.WriteFile(usersPath, []byte(usersJSON), 0o644))

	users, err := LoadUsers(usersPath)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "hash1", users["mila"].PasswordHash)
	assert.Equal(t, "hash2", users["dusan"].PasswordHash)

	_, err = LoadUsers(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
