// Package auth performs platform logins, reusing stored sessions where
// possible and tracking out-of-band two-factor challenges.
package auth

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"

	igerrors "igproxy/pkg/errors"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/session"
)

const (
	// DefaultChallengeTTL is how long a two-factor challenge stays redeemable
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultMaxAttempts bounds incorrect code submissions per challenge
	DefaultMaxAttempts = 3
)

// Credential identifies an account to authenticate as
type Credential struct {
	Username         string
	Password         string
	TwoFactorEnabled bool
}

// Login is the outcome of an authentication attempt. Exactly one of Client
// and ChallengeToken is set: a client when the login completed, a token when
// a two-factor code must be submitted first.
type Login struct {
	Client         instagram.API
	ChallengeToken string
}

// ClientFactory builds a fresh platform client for one login attempt
type ClientFactory func() instagram.API

// Options tunes challenge expiry and the attempt budget
type Options struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
}

// Authenticator logs credentials into the platform. It tries a stored session
// first and falls back to a password login, persisting the resulting session.
// Two-factor logins park the half-authenticated client under a token until
// the code arrives on a later request.
type Authenticator struct {
	sessions   *session.Manager
	challenges ChallengeStore
	newClient  ClientFactory
	logger     logger.Logger

	challengeTTL time.Duration
	maxAttempts  int

	// Clients mid two-factor carry live cookie state that cannot be
	// serialized, so they stay pinned to this process.
	pending sync.Map
}

// New creates an authenticator over the given session manager and challenge store
func New(sessions *session.Manager, challenges ChallengeStore, factory ClientFactory, log logger.Logger, opts Options) *Authenticator {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = DefaultChallengeTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Authenticator{
		sessions:     sessions,
		challenges:   challenges,
		newClient:    factory,
		logger:       log,
		challengeTTL: opts.ChallengeTTL,
		maxAttempts:  opts.MaxAttempts,
	}
}

// Authenticate returns an authenticated client for the credential. A stored
// session is reused without touching the network; otherwise a fresh password
// login runs. When the account requires two-factor and the credential allows
// it, the returned Login carries a challenge token instead of a client.
func (a *Authenticator) Authenticate(ctx context.Context, cred Credential) (*Login, error) {
	if cred.Username == "" {
		return nil, igerrors.New(igerrors.KindBadCredentials, "username is required")
	}

	unlock := a.sessions.LockUser(cred.Username)
	defer unlock()

	if login := a.restoreSession(cred.Username); login != nil {
		return login, nil
	}

	if cred.Password == "" {
		return nil, igerrors.New(igerrors.KindBadCredentials, "no stored session and no password provided")
	}

	client := a.newClient()
	err := client.Login(ctx, cred.Username, cred.Password)
	if err == nil {
		a.persistSession(client, cred.Username)
		a.logger.WithField("username", cred.Username).Info("logged in")
		return &Login{Client: client}, nil
	}

	var igErr *instagram.Error
	if stderrors.As(err, &igErr) && igErr.Type == instagram.ErrorTypeTwoFactor {
		if !cred.TwoFactorEnabled {
			return nil, igerrors.New(igerrors.KindTwoFactorRequired, "two-factor authentication required")
		}
		return a.openChallenge(ctx, client, cred.Username)
	}

	a.logger.WithError(err).WithField("username", cred.Username).Warn("login failed")
	return nil, igerrors.Classify(err)
}

// SubmitChallenge redeems a pending two-factor challenge with a verification
// code and returns the now-authenticated client.
func (a *Authenticator) SubmitChallenge(ctx context.Context, token, code string) (*Login, error) {
	challenge, err := a.challenges.Get(ctx, token)
	if err != nil {
		if stderrors.Is(err, ErrChallengeNotFound) || stderrors.Is(err, ErrChallengeExpired) {
			a.pending.Delete(token)
			return nil, igerrors.New(igerrors.KindBadCredentials, "challenge not found or expired")
		}
		return nil, igerrors.Classify(err)
	}

	unlock := a.sessions.LockUser(challenge.Username)
	defer unlock()

	value, ok := a.pending.Load(token)
	if !ok {
		// Challenge was issued by another process; its client is not here
		_ = a.challenges.Delete(ctx, token)
		return nil, igerrors.New(igerrors.KindBadCredentials, "challenge is not pending on this instance")
	}
	client := value.(instagram.API)

	if err := client.SubmitTwoFactorCode(ctx, code); err != nil {
		var igErr *instagram.Error
		if stderrors.As(err, &igErr) && igErr.Type == instagram.ErrorTypeAuth {
			exhausted, recErr := a.challenges.RecordFailure(ctx, token, a.maxAttempts)
			if recErr != nil && !stderrors.Is(recErr, ErrChallengeNotFound) && !stderrors.Is(recErr, ErrChallengeExpired) {
				a.logger.WithError(recErr).Warn("failed to record challenge attempt")
			}
			if exhausted || recErr != nil {
				a.pending.Delete(token)
				return nil, igerrors.New(igerrors.KindBadCredentials, "too many incorrect verification codes")
			}
			return nil, igerrors.New(igerrors.KindBadCredentials, "incorrect verification code")
		}
		return nil, igerrors.Classify(err)
	}

	a.pending.Delete(token)
	if err := a.challenges.Delete(ctx, token); err != nil {
		a.logger.WithError(err).Warn("failed to delete redeemed challenge")
	}

	a.persistSession(client, challenge.Username)
	a.logger.WithField("username", challenge.Username).Info("two-factor login completed")
	return &Login{Client: client}, nil
}

// DeleteSession removes any stored session for the username
func (a *Authenticator) DeleteSession(username string) error {
	unlock := a.sessions.LockUser(username)
	defer unlock()
	return a.sessions.Delete(username)
}

// Sessions exposes the underlying session manager
func (a *Authenticator) Sessions() *session.Manager {
	return a.sessions
}

func (a *Authenticator) restoreSession(username string) *Login {
	blob, err := a.sessions.Load(username)
	if err != nil {
		return nil
	}

	client := a.newClient()
	if err := client.RestoreSession(username, blob); err != nil {
		a.logger.WithError(err).WithField("username", username).Warn("stored session unusable, falling back to login")
		return nil
	}

	a.logger.WithField("username", username).Debug("reused stored session")
	return &Login{Client: client}
}

func (a *Authenticator) openChallenge(ctx context.Context, client instagram.API, username string) (*Login, error) {
	token := uuid.NewString()
	if err := a.challenges.Save(ctx, token, &Challenge{Username: username}, a.challengeTTL); err != nil {
		return nil, igerrors.Classify(err)
	}

	a.pending.Store(token, client)
	a.logger.WithField("username", username).Info("two-factor challenge issued")
	return &Login{ChallengeToken: token}, nil
}

func (a *Authenticator) persistSession(client instagram.API, username string) {
	blob, err := client.SerializeSession()
	if err != nil {
		a.logger.WithError(err).WithField("username", username).Warn("failed to serialize session")
		return
	}
	if err := a.sessions.Save(username, blob); err != nil {
		a.logger.WithError(err).WithField("username", username).Warn("failed to persist session")
	}
}
