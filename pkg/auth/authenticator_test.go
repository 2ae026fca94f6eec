package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igerrors "igproxy/pkg/errors"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/session"
)

// fakeAPI is a scripted platform client for authenticator tests
type fakeAPI struct {
	loginErr     error
	twoFactorErr error
	restoreErr   error

	loginCalls     int
	restoreCalls   int
	submittedCodes []string

	serialized []byte
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeAPI) SubmitTwoFactorCode(ctx context.Context, code string) error {
	f.submittedCodes = append(f.submittedCodes, code)
	return f.twoFactorErr
}

func (f *fakeAPI) RestoreSession(username string, blob []byte) error {
	f.restoreCalls++
	return f.restoreErr
}

func (f *fakeAPI) SerializeSession() ([]byte, error) {
	if f.serialized == nil {
		return []byte("serialized-session"), nil
	}
	return f.serialized, nil
}

func (f *fakeAPI) ResolveProfile(ctx context.Context, name string) (*instagram.Profile, error) {
	return nil, nil
}

func (f *fakeAPI) ListHighlights(ctx context.Context, userID string) ([]instagram.Reel, error) {
	return nil, nil
}

func (f *fakeAPI) ListHighlightItems(ctx context.Context, reelID string) ([]instagram.ReelItem, error) {
	return nil, nil
}

func (f *fakeAPI) ListPosts(ctx context.Context, userID string, max int) ([]instagram.Post, error) {
	return nil, nil
}

func newTestAuthenticator(t *testing.T, api *fakeAPI) (*Authenticator, *session.Manager) {
	t.Helper()
	manager, err := session.NewManager(logger.NewTestLogger(), session.NewMemoryStore())
	require.NoError(t, err)

	authenticator := New(manager, NewMemoryChallengeStore(), func() instagram.API { return api }, logger.NewTestLogger(), Options{})
	return authenticator, manager
}

func TestAuthenticateReusesStoredSession(t *testing.T) {
	api := &fakeAPI{}
	authenticator, manager := newTestAuthenticator(t, api)
	require.NoError(t, manager.Save("alice", []byte("stored-session")))

	login, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	assert.NotNil(t, login.Client)
	assert.Empty(t, login.ChallengeToken)
	assert.Equal(t, 1, api.restoreCalls)
	assert.Zero(t, api.loginCalls, "stored session must not trigger a network login")
}

func TestAuthenticateFallsBackWhenSessionUnusable(t *testing.T) {
	api := &fakeAPI{restoreErr: &instagram.Error{Type: instagram.ErrorTypeParsing, Message: "bad blob"}}
	authenticator, manager := newTestAuthenticator(t, api)
	require.NoError(t, manager.Save("alice", []byte("corrupt")))

	login, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	assert.NotNil(t, login.Client)
	assert.Equal(t, 1, api.loginCalls)
}

func TestAuthenticateFreshLoginPersistsSession(t *testing.T) {
	api := &fakeAPI{}
	authenticator, manager := newTestAuthenticator(t, api)

	login, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	assert.NotNil(t, login.Client)
	blob, err := manager.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("serialized-session"), blob)
}

func TestAuthenticateBadCredentials(t *testing.T) {
	api := &fakeAPI{loginErr: &instagram.Error{Type: instagram.ErrorTypeAuth, Message: "wrong password"}}
	authenticator, _ := newTestAuthenticator(t, api)

	_, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
}

func TestAuthenticateConnectivityFailure(t *testing.T) {
	api := &fakeAPI{loginErr: &instagram.Error{Type: instagram.ErrorTypeNetwork, Message: "timeout"}}
	authenticator, _ := newTestAuthenticator(t, api)

	_, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, igerrors.KindConnectivityFailure, igerrors.KindOf(err))
}

func TestAuthenticateMissingUsername(t *testing.T) {
	authenticator, _ := newTestAuthenticator(t, &fakeAPI{})

	_, err := authenticator.Authenticate(context.Background(), Credential{Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
}

func TestAuthenticateNoSessionNoPassword(t *testing.T) {
	authenticator, _ := newTestAuthenticator(t, &fakeAPI{})

	_, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice"})
	require.Error(t, err)
	assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
}

func TestAuthenticateTwoFactorNotEnabled(t *testing.T) {
	api := &fakeAPI{loginErr: &instagram.Error{Type: instagram.ErrorTypeTwoFactor, Message: "code required"}}
	authenticator, _ := newTestAuthenticator(t, api)

	_, err := authenticator.Authenticate(context.Background(), Credential{Username: "alice", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, igerrors.KindTwoFactorRequired, igerrors.KindOf(err))
}

func TestAuthenticateTwoFactorIssuesChallenge(t *testing.T) {
	api := &fakeAPI{loginErr: &instagram.Error{Type: instagram.ErrorTypeTwoFactor, Message: "code required"}}
	authenticator, _ := newTestAuthenticator(t, api)

	login, err := authenticator.Authenticate(context.Background(), Credential{
		Username:         "alice",
		Password:         "secret",
		TwoFactorEnabled: true,
	})
	require.NoError(t, err)

	assert.Nil(t, login.Client)
	assert.NotEmpty(t, login.ChallengeToken)
}

func TestSubmitChallengeCompletesLogin(t *testing.T) {
	api := &fakeAPI{loginErr: &instagram.Error{Type: instagram.ErrorTypeTwoFactor, Message: "code required"}}
	authenticator, manager := newTestAuthenticator(t, api)

	pending, err := authenticator.Authenticate(context.Background(), Credential{
		Username:         "alice",
		Password:         "secret",
		TwoFactorEnabled: true,
	})
	require.NoError(t, err)

	login, err := authenticator.SubmitChallenge(context.Background(), pending.ChallengeToken, "123456")
	require.NoError(t, err)

	assert.NotNil(t, login.Client)
	assert.Equal(t, []string{"123456"}, api.submittedCodes)
	assert.True(t, manager.Exists("alice"), "session must be persisted after two-factor login")

	// Redeemed tokens cannot be replayed
	_, err = authenticator.SubmitChallenge(context.Background(), pending.ChallengeToken, "123456")
	require.Error(t, err)
	assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
}

func TestSubmitChallengeBoundedAttempts(t *testing.T) {
	api := &fakeAPI{
		loginErr:     &instagram.Error{Type: instagram.ErrorTypeTwoFactor, Message: "code required"},
		twoFactorErr: &instagram.Error{Type: instagram.ErrorTypeAuth, Message: "incorrect code"},
	}
	authenticator, _ := newTestAuthenticator(t, api)

	pending, err := authenticator.Authenticate(context.Background(), Credential{
		Username:         "alice",
		Password:         "secret",
		TwoFactorEnabled: true,
	})
	require.NoError(t, err)

	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err = authenticator.SubmitChallenge(context.Background(), pending.ChallengeToken, "000000")
		require.Error(t, err)
		assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
	}

	// The challenge is gone after exhausting the budget, even with the right code
	api.twoFactorErr = nil
	_, err = authenticator.SubmitChallenge(context.Background(), pending.ChallengeToken, "123456")
	require.Error(t, err)
	assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
}

func TestSubmitChallengeUnknownToken(t *testing.T) {
	authenticator, _ := newTestAuthenticator(t, &fakeAPI{})

	_, err := authenticator.SubmitChallenge(context.Background(), "no-such-token", "123456")
	require.Error(t, err)
	assert.Equal(t, igerrors.KindBadCredentials, igerrors.KindOf(err))
}

func TestDeleteSession(t *testing.T) {
	authenticator, manager := newTestAuthenticator(t, &fakeAPI{})
	require.NoError(t, manager.Save("alice", []byte("blob")))

	require.NoError(t, authenticator.DeleteSession("alice"))
	assert.False(t, manager.Exists("alice"))
}
