package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"facetrack/internal/clock"
	"facetrack/internal/identity"
	"facetrack/internal/logging"
	"facetrack/internal/store"
)

// SlotKey is the key under which the logged-in identity is persisted.
const SlotKey = "currentUser"

const (
	// DefaultSecret is the shared password every demo identity logs in with.
	DefaultSecret = "demo123"
	// DefaultDelay is the artificial pause before Login and Register resolve.
	DefaultDelay = time.Second
)

var (
	// ErrAuthenticationFailed covers both an unknown email and a wrong secret.
	ErrAuthenticationFailed    = errors.New("invalid credentials")
	ErrRegistrationUnsupported = errors.New("registration is not implemented")
	ErrRestoring               = errors.New("session is still restoring")
	ErrLoginInProgress         = errors.New("login already in progress")
	ErrAlreadyAuthenticated    = errors.New("already authenticated")
	ErrLoginCancelled          = errors.New("login cancelled by logout")
)

// State is the authentication lifecycle state.
type State string

const (
	StateRestoring       State = "restoring"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

// Session is a read-only view of the current authentication state.
type Session struct {
	State         State              `json:"state"`
	Identity      *identity.Identity `json:"user"`
	Authenticated bool               `json:"isAuthenticated"`
	Loading       bool               `json:"isLoading"`
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	Secret string
	// Delay is the artificial pause before login and register resolve.
	// Negative disables it.
	Delay  time.Duration
	Clock  clock.Clock
	Logger *slog.Logger
}

// Manager owns the process-wide session and the persisted identity slot.
// All mutation goes through Restore, Login and Logout.
type Manager struct {
	dir    *identity.Directory
	slot   store.Slot
	secret string
	delay  time.Duration
	clock  clock.Clock
	logger *slog.Logger

	restoreOnce sync.Once
	// slotMu orders slot writes and deletes. It is never taken while mu is
	// held.
	slotMu sync.Mutex

	mu      sync.Mutex
	state   State
	current *identity.Identity
	attempt uint64
}

// NewManager creates a manager in the restoring state.
func NewManager(dir *identity.Directory, slot store.Slot, opts Options) *Manager {
	if opts.Secret == "" {
		opts.Secret = DefaultSecret
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Manager{
		dir:    dir,
		slot:   slot,
		secret: opts.Secret,
		delay:  opts.Delay,
		clock:  opts.Clock,
		logger: logging.Or(opts.Logger).With("component", "session"),
		state:  StateRestoring,
	}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Session{
		State:         m.state,
		Authenticated: m.state == StateAuthenticated,
		Loading:       m.state == StateRestoring || m.state == StateAuthenticating,
	}
	if m.current != nil {
		id := *m.current
		s.Identity = &id
	}
	return s
}

// Restore resolves the restoring state from the persisted slot. It runs once;
// later calls do nothing. Unreadable or malformed values count as absent.
func (m *Manager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		id, ok := m.readSlot(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state != StateRestoring {
			return
		}
		if !ok {
			m.state = StateUnauthenticated
			m.logger.DebugContext(ctx, "no stored session")
			return
		}
		m.current = &id
		m.state = StateAuthenticated
		m.logger.InfoContext(ctx, "session restored", "user_id", id.ID, "role", id.Role)
	})
}

func (m *Manager) readSlot(ctx context.Context) (identity.Identity, bool) {
	raw, err := m.slot.Get(ctx, SlotKey)
	if err != nil {
		if !errors.Is(err, store.ErrSlotEmpty) {
			m.logger.WarnContext(ctx, "read stored session failed", "error", err)
		}
		return identity.Identity{}, false
	}
	var id identity.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		m.logger.WarnContext(ctx, "stored session malformed", "error", err)
		return identity.Identity{}, false
	}
	if err := id.Validate(); err != nil {
		m.logger.WarnContext(ctx, "stored session invalid", "error", err)
		return identity.Identity{}, false
	}
	return id, true
}

// Login checks email and password after the artificial delay. Success
// persists the identity and authenticates the session; any failure leaves
// the session exactly as it was. Logging in again as the already
// authenticated identity succeeds without touching the slot.
func (m *Manager) Login(ctx context.Context, email, password string) (id identity.Identity, err error) {
	m.mu.Lock()
	switch m.state {
	case StateRestoring:
		m.mu.Unlock()
		return identity.Identity{}, ErrRestoring
	case StateAuthenticating:
		m.mu.Unlock()
		return identity.Identity{}, ErrLoginInProgress
	case StateAuthenticated:
		current := *m.current
		m.mu.Unlock()
		return m.relogin(ctx, current, email, password)
	}
	m.state = StateAuthenticating
	m.attempt++
	attempt := m.attempt
	m.mu.Unlock()

	logger := m.logger.With("email", email)
	defer func() {
		if err != nil {
			logger.InfoContext(ctx, "login failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "login succeeded", "user_id", id.ID, "role", id.Role)
	}()

	waitErr := m.wait(ctx)

	m.mu.Lock()
	if m.state != StateAuthenticating || m.attempt != attempt {
		m.mu.Unlock()
		return identity.Identity{}, ErrLoginCancelled
	}
	found, credErr := m.check(email, password)
	if waitErr == nil {
		waitErr = credErr
	}
	if waitErr != nil {
		m.state = StateUnauthenticated
		m.mu.Unlock()
		return identity.Identity{}, waitErr
	}
	m.mu.Unlock()

	raw, err := json.Marshal(found)
	if err != nil {
		m.abandon(attempt)
		return identity.Identity{}, fmt.Errorf("encode session: %w", err)
	}

	// slotMu is held until the commit so a concurrent Logout deletes after
	// this write lands.
	m.slotMu.Lock()
	defer m.slotMu.Unlock()
	if err := m.slot.Put(ctx, SlotKey, raw); err != nil {
		m.abandon(attempt)
		return identity.Identity{}, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticating || m.attempt != attempt {
		return identity.Identity{}, ErrLoginCancelled
	}
	m.current = &found
	m.state = StateAuthenticated
	return found, nil
}

// relogin confirms the credentials of the identity already signed in, for
// instance one restored from the slot after a restart.
func (m *Manager) relogin(ctx context.Context, current identity.Identity, email, password string) (identity.Identity, error) {
	if err := m.wait(ctx); err != nil {
		return identity.Identity{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.current == nil || m.current.ID != current.ID {
		return identity.Identity{}, ErrLoginCancelled
	}
	found, err := m.check(email, password)
	if err != nil {
		return identity.Identity{}, err
	}
	if found.ID != current.ID {
		return identity.Identity{}, ErrAlreadyAuthenticated
	}
	m.logger.InfoContext(ctx, "login confirmed for current session", "user_id", current.ID)
	return *m.current, nil
}

func (m *Manager) check(email, password string) (identity.Identity, error) {
	found, ok := m.dir.Lookup(email)
	secretOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.secret)) == 1
	if !ok || !secretOK {
		return identity.Identity{}, ErrAuthenticationFailed
	}
	return found, nil
}

// abandon reverts a pending login that failed after the credential check.
func (m *Manager) abandon(attempt uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAuthenticating && m.attempt == attempt {
		m.state = StateUnauthenticated
	}
}

// Logout clears the session and the persisted slot. It always succeeds; a
// slot failure is only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()

	m.slotMu.Lock()
	defer m.slotMu.Unlock()
	if err := m.slot.Delete(ctx, SlotKey); err != nil {
		m.logger.WarnContext(ctx, "clear stored session failed", "error", err)
	}
	if prev != nil {
		m.logger.InfoContext(ctx, "logged out", "user_id", prev.ID)
	}
}

// Register waits the same delay as Login and then reports that registration
// is unsupported. Nothing is created or changed.
func (m *Manager) Register(ctx context.Context, candidate identity.Identity) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "registration rejected", "email", candidate.Email)
	return ErrRegistrationUnsupported
}

func (m *Manager) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-m.clock.After(m.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
