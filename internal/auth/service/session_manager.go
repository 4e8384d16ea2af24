// Package service holds the session lifecycle: installing sessions from
// credential exchanges, persisting them, revoking them at expiry, and
// transparently refreshing them for outgoing requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"planta-mantenimiento/client/internal/auth/client"
	"planta-mantenimiento/client/internal/auth/domain"
	"planta-mantenimiento/client/internal/auth/repository"
	"planta-mantenimiento/client/internal/security"
)

// Sentinel errors for the session lifecycle; the CLI maps them to user-facing
// messages.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionRefreshFailed = errors.New("session refresh failed")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrNoSession            = errors.New("no active session")
	ErrNoExpiration         = errors.New("session has no derivable expiration")
)

// CredentialClient is the minimal credential exchange surface needed by the
// manager.
type CredentialClient interface {
	Login(ctx context.Context, username, password string) (*client.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*client.TokenGrant, error)
}

// Timer is a pending one-shot callback. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// Options tunes the manager. The zero value gives the defaults: 30s clock
// skew, non-expiring sessions allowed, wall clock, real timers.
type Options struct {
	// ClockSkew treats a session as expired this long before its literal
	// expiration, covering in-flight request time.
	ClockSkew time.Duration
	// RequireExpiry rejects sessions for which no expiration is derivable
	// instead of treating them as non-expiring.
	RequireExpiry bool
	// Now and NewTimer are test hooks for virtual time.
	Now      func() time.Time
	NewTimer func(d time.Duration, fn func()) Timer
}

const defaultClockSkew = 30 * time.Second

// Manager holds the single authoritative session. Every replacement updates
// memory and the durable mirror together and reschedules the auto-expiry
// timer; at most one timer and one in-flight refresh exist at any time.
type Manager struct {
	repo          repository.Repository
	creds         CredentialClient
	logger        zerolog.Logger
	skew          time.Duration
	requireExpiry bool
	now           func() time.Time
	newTimer      func(time.Duration, func()) Timer

	mu          sync.Mutex
	session     *domain.Session
	expiryTimer Timer
	timerGen    uint64
	inflight    *refreshFuture
}

// refreshFuture is the shared outcome of a single in-flight refresh; every
// concurrent Authorize caller waits on it instead of issuing its own call.
type refreshFuture struct {
	done  chan struct{}
	token string
	err   error
}

// NewManager builds a Manager and hydrates it from the repository. A
// persisted session that is already expired (or that lacks an expiration
// while RequireExpiry is set) is discarded and its durable record deleted
// rather than exposed as stale state.
func NewManager(repo repository.Repository, creds CredentialClient, logger zerolog.Logger, opts Options) (*Manager, error) {
	if opts.ClockSkew <= 0 {
		opts.ClockSkew = defaultClockSkew
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTimer == nil {
		opts.NewTimer = func(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }
	}
	m := &Manager{
		repo:          repo,
		creds:         creds,
		logger:        logger,
		skew:          opts.ClockSkew,
		requireExpiry: opts.RequireExpiry,
		now:           opts.Now,
		newTimer:      opts.NewTimer,
	}

	persisted, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("hydrate session: %w", err)
	}
	if persisted != nil {
		switch {
		case persisted.Expired(m.now(), m.skew):
			m.logger.Info().Msg("discarding expired persisted session")
			if err := repo.Save(nil); err != nil {
				return nil, fmt.Errorf("discard expired session: %w", err)
			}
		case m.requireExpiry && persisted.ExpiresAt == nil:
			m.logger.Info().Msg("discarding persisted session without expiration")
			if err := repo.Save(nil); err != nil {
				return nil, fmt.Errorf("discard session without expiration: %w", err)
			}
		default:
			m.session = persisted
			if persisted.ExpiresAt != nil {
				m.scheduleLocked(*persisted.ExpiresAt)
			}
			m.logger.Debug().Str("username", persisted.User.Username).Msg("session hydrated")
		}
	}
	return m, nil
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (m *Manager) CurrentUser() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	u := m.session.User
	return &u
}

// CurrentToken returns the current bearer token, expired or not; empty when
// no session is installed.
func (m *Manager) CurrentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// CurrentSession returns a copy of the current session, or nil.
func (m *Manager) CurrentSession() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// IsAuthenticated reports whether a session is installed and usable at this
// instant, clock skew included.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && !m.session.Expired(m.now(), m.skew)
}

// Login exchanges the credentials for a session and installs it as the
// authoritative session. Rejected credentials and structurally unusable
// responses surface as ErrAuthenticationFailed; transport failures propagate
// unchanged.
func (m *Manager) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	grant, err := m.creds.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, client.ErrRejected) || errors.Is(err, client.ErrMalformedResponse) {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.sessionFromGrant(grant, nil)
	if m.requireExpiry && next.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, ErrNoExpiration)
	}
	if err := m.installLocked(next); err != nil {
		return nil, err
	}
	m.logger.Info().Str("username", next.User.Username).Str("role", string(next.User.Role)).
		Msg("session installed")
	user := next.User
	return &user, nil
}

// Logout installs the absent session: memory and the durable record are
// cleared and any pending expiry timer cancelled.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.installLocked(nil); err != nil {
		return err
	}
	m.logger.Info().Msg("session cleared")
	return nil
}

// Update derives a new authoritative session by applying apply to a copy of
// the current one. The result replaces memory and the durable mirror as a
// unit, like any other install.
func (m *Manager) Update(apply func(next *domain.Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNoSession
	}
	next := *m.session
	apply(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	return m.installLocked(&next)
}

// Authorize returns the bearer token to attach to an outgoing request. An
// expired session with a refresh token triggers exactly one refresh attempt,
// shared by all concurrent callers; an expired session without one, or a
// failed refresh, clears the session and reports ErrUnauthenticated.
func (m *Manager) Authorize(ctx context.Context) (string, error) {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return "", ErrUnauthenticated
	}
	if !s.Expired(m.now(), m.skew) {
		token := s.Token
		m.mu.Unlock()
		return token, nil
	}
	if s.RefreshToken == "" {
		m.logger.Info().Msg("session expired with no refresh token")
		_ = m.installLocked(nil)
		m.mu.Unlock()
		return "", ErrUnauthenticated
	}
	if m.inflight == nil {
		fut := &refreshFuture{done: make(chan struct{})}
		m.inflight = fut
		current := *s
		// The refresh outcome is shared state, so its lifetime must not be
		// tied to whichever caller happened to start it.
		go m.runRefresh(context.WithoutCancel(ctx), current, fut)
	}
	fut := m.inflight
	m.mu.Unlock()

	select {
	case <-fut.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if fut.err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, fut.err)
	}
	return fut.token, nil
}

func (m *Manager) runRefresh(ctx context.Context, current domain.Session, fut *refreshFuture) {
	grant, err := m.creds.Refresh(ctx, current.RefreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = nil
	defer close(fut.done)

	if err != nil {
		m.logger.Warn().Err(err).Msg("session refresh failed")
		_ = m.installLocked(nil)
		fut.err = fmt.Errorf("%w: %w", ErrSessionRefreshFailed, err)
		return
	}
	next := m.sessionFromGrant(grant, &current)
	if m.requireExpiry && next.ExpiresAt == nil {
		m.logger.Warn().Msg("refreshed session has no expiration")
		_ = m.installLocked(nil)
		fut.err = fmt.Errorf("%w: %w", ErrSessionRefreshFailed, ErrNoExpiration)
		return
	}
	if err := m.installLocked(next); err != nil {
		fut.err = fmt.Errorf("%w: %w", ErrSessionRefreshFailed, err)
		return
	}
	m.logger.Info().Msg("session refreshed")
	fut.token = next.Token
}

// sessionFromGrant normalizes a grant into a session. prev carries the user
// and refresh token forward across a refresh unless the server supplied
// replacements. The expiration is freshly derived: a server-declared
// absolute instant wins, then the token's own exp claim, then the relative
// lifetime.
func (m *Manager) sessionFromGrant(grant *client.TokenGrant, prev *domain.Session) *domain.Session {
	s := &domain.Session{
		Token:        grant.Token,
		RefreshToken: grant.RefreshToken,
	}
	if s.RefreshToken == "" && prev != nil {
		s.RefreshToken = prev.RefreshToken
	}
	if grant.User != nil {
		s.User = *grant.User
	} else if prev != nil {
		s.User = prev.User
	}
	if grant.ExpiresAt != nil {
		exp := *grant.ExpiresAt
		s.ExpiresAt = &exp
	} else {
		s.ExpiresAt = security.ResolveExpiration(grant.Token, grant.ExpiresIn, m.now())
	}
	return s
}

// installLocked replaces the authoritative session: it cancels the pending
// expiry timer, updates memory and the durable mirror together, and
// schedules a new timer when the session expires. On a persistence failure
// the previous session stays authoritative so memory and disk never
// disagree. Callers hold m.mu.
func (m *Manager) installLocked(s *domain.Session) error {
	if m.expiryTimer != nil {
		m.expiryTimer.Stop()
		m.expiryTimer = nil
	}
	m.timerGen++

	prev := m.session
	m.session = s
	if err := m.repo.Save(s); err != nil {
		m.session = prev
		if prev != nil && prev.ExpiresAt != nil {
			m.scheduleLocked(*prev.ExpiresAt)
		}
		return fmt.Errorf("persist session: %w", err)
	}
	if s != nil && s.ExpiresAt != nil {
		m.scheduleLocked(*s.ExpiresAt)
	}
	return nil
}

// scheduleLocked arms the one-shot auto-expiry callback. The generation
// check keeps a stale timer from clearing a newer, unrelated session.
func (m *Manager) scheduleLocked(at time.Time) {
	gen := m.timerGen
	d := at.Sub(m.now())
	if d < 0 {
		d = 0
	}
	m.expiryTimer = m.newTimer(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.timerGen || m.session == nil {
			return
		}
		m.logger.Info().Msg("session expired")
		_ = m.installLocked(nil)
	})
}
