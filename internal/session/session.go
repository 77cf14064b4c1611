package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dennisdiepolder/monti/insights/internal/gateway"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/storage"
	"github.com/dennisdiepolder/monti/insights/internal/types"
	"github.com/rs/zerolog"
)

// State of the single session slot
type State string

const (
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

var (
	ErrSessionLoading   = errors.New("session is still loading")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
	// ErrStale is returned when a login completes after the session moved on
	ErrStale      = errors.New("session changed while the request was in flight")
	ErrNotStarted = errors.New("session store not initialized")
)

// Authenticator is the auth half of the call API
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*types.AuthResponse, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*types.AuthResponse, error)
	// Me resolves the user behind the current token
	Me(ctx context.Context) (*types.User, error)
}

// Snapshot is an immutable view of the session
type Snapshot struct {
	State State       `json:"state"`
	User  *types.User `json:"user,omitempty"`
}

// record is what gets persisted under storage.SessionKey
type record struct {
	Token string      `json:"token"`
	User  *types.User `json:"user,omitempty"`
}

// Store owns the one session of this process. Every transition happens under mu,
// together with the write to persistence.
type Store struct {
	mu       sync.Mutex
	persist  storage.TokenStore
	auth     Authenticator
	notifier Notifier
	logger   zerolog.Logger

	state State
	token string
	user  *types.User
	// epoch changes whenever the session is decided; attempt numbers logins so
	// only the newest one in flight can win
	epoch   uint64
	attempt uint64

	subs    map[int]chan Snapshot
	nextSub int
}

// NewStore creates a store in the loading state. notifier may be nil.
func NewStore(persist storage.TokenStore, notifier Notifier, logger zerolog.Logger) *Store {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Store{
		persist:  persist,
		notifier: notifier,
		logger:   logger.With().Str("component", "session").Logger(),
		state:    StateLoading,
		subs:     make(map[int]chan Snapshot),
	}
}

// Init restores a persisted session and resolves it with auth.Me. A token the API
// rejects as unauthorized is discarded; any other failure leaves the session
// anonymous but keeps the persisted token for the next start.
func (s *Store) Init(ctx context.Context, auth Authenticator) error {
	s.mu.Lock()
	s.auth = auth

	data, err := s.persist.Get(ctx, storage.SessionKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read persisted session")
		}
		s.setLocked(StateAnonymous, "", nil)
		s.mu.Unlock()
		return nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Token == "" {
		s.logger.Warn().Msg("discarding unreadable persisted session")
		if err := s.persist.Delete(ctx, storage.SessionKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear persisted session")
		}
		s.setLocked(StateAnonymous, "", nil)
		s.mu.Unlock()
		return nil
	}

	// loading with a token: requests issued by Me carry it
	s.token = rec.Token
	epoch := s.epoch
	s.mu.Unlock()

	user, err := auth.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		// a login, logout or invalidation already decided the session
		return nil
	}

	switch {
	case err == nil:
		rec.User = user
		if perr := s.save(ctx, rec); perr != nil {
			s.logger.Warn().Err(perr).Msg("failed to refresh persisted session")
		}
		s.setLocked(StateAuthenticated, rec.Token, user)
		s.logger.Info().Str("user", user.Email).Msg("session restored")
		return nil
	case errors.Is(err, gateway.ErrUnauthorized):
		if derr := s.persist.Delete(ctx, storage.SessionKey); derr != nil {
			s.logger.Warn().Err(derr).Msg("failed to clear persisted session")
		}
		s.setLocked(StateAnonymous, "", nil)
		s.logger.Info().Msg("persisted session rejected, signed out")
		return nil
	default:
		s.setLocked(StateAnonymous, "", nil)
		s.logger.Warn().Err(err).Msg("could not restore session, token kept for next start")
		return fmt.Errorf("restore session: %w", err)
	}
}

// Login authenticates with email and password
func (s *Store) Login(ctx context.Context, email, password string) (*types.User, error) {
	auth, t, err := s.begin()
	if err != nil {
		return nil, err
	}
	resp, err := auth.Login(ctx, email, password)
	metrics.Get().RecordLogin("password", err == nil)
	if err != nil {
		s.notifyLoginFailed("Login Failed", err)
		return nil, err
	}
	return s.establish(ctx, t, resp)
}

// LoginWithExternalProvider authenticates with a Google ID token
func (s *Store) LoginWithExternalProvider(ctx context.Context, idToken string) (*types.User, error) {
	auth, t, err := s.begin()
	if err != nil {
		return nil, err
	}
	resp, err := auth.LoginWithGoogle(ctx, idToken)
	metrics.Get().RecordLogin("google", err == nil)
	if err != nil {
		s.notifyLoginFailed("Google Login Failed", err)
		return nil, err
	}
	return s.establish(ctx, t, resp)
}

// ticket identifies one login attempt and the session it started from
type ticket struct {
	attempt uint64
	epoch   uint64
}

// begin marks the start of a login; any login still in flight becomes stale.
// The session itself is untouched until the login succeeds, so a failed attempt
// never interrupts a restore in progress.
func (s *Store) begin() (Authenticator, ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.auth == nil {
		return nil, ticket{}, ErrNotStarted
	}
	s.attempt++
	return s.auth, ticket{attempt: s.attempt, epoch: s.epoch}, nil
}

func (s *Store) establish(ctx context.Context, t ticket, resp *types.AuthResponse) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != t.attempt || s.epoch != t.epoch {
		s.logger.Debug().Msg("discarding late login result")
		return nil, ErrStale
	}

	user := resp.User
	rec := record{Token: resp.AccessToken, User: &user}
	if err := s.save(ctx, rec); err != nil {
		s.notifier.Notify(Notification{
			Kind:    KindLoginFailed,
			Level:   LevelError,
			Title:   "Login Failed",
			Message: "Could not store the session",
		})
		return nil, err
	}

	s.setLocked(StateAuthenticated, rec.Token, &user)
	s.epoch++
	s.logger.Info().Str("user", user.Email).Str("role", string(user.Role)).Msg("signed in")
	s.notifier.Notify(Notification{
		Kind:     KindLoginSucceeded,
		Level:    LevelSuccess,
		Title:    "Signed in",
		Message:  fmt.Sprintf("Welcome, %s", displayName(&user)),
		Redirect: "/dashboard",
	})

	u := user
	return &u, nil
}

func (s *Store) notifyLoginFailed(title string, err error) {
	s.logger.Info().Err(err).Msg("login failed")
	s.notifier.Notify(Notification{
		Kind:    KindLoginFailed,
		Level:   LevelError,
		Title:   title,
		Message: gateway.Message(err),
	})
}

// Logout clears the session. The in-memory state is cleared first; a failure to
// clear persistence is reported and returned but never undoes the logout.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(StateAnonymous, "", nil)
	s.epoch++

	if err := s.persist.Delete(ctx, storage.SessionKey); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear persisted session")
		s.notifier.Notify(Notification{
			Kind:     KindLogoutFailed,
			Level:    LevelError,
			Title:    "Logout Failed",
			Message:  "There was an error logging out. Please try again.",
			Redirect: "/login",
		})
		return fmt.Errorf("clear session: %w", err)
	}

	s.logger.Info().Msg("signed out")
	s.notifier.Notify(Notification{
		Kind:     KindLoggedOut,
		Level:    LevelInfo,
		Title:    "Signed out",
		Redirect: "/login",
	})
	return nil
}

// Invalidate ends the session because the API rejected token. It reports whether
// the session was cleared; a token that is no longer current is ignored.
func (s *Store) Invalidate(ctx context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || token != s.token {
		return false
	}

	s.setLocked(StateAnonymous, "", nil)
	s.epoch++

	if err := s.persist.Delete(ctx, storage.SessionKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear persisted session")
	}
	s.logger.Info().Msg("session rejected by API, signed out")
	s.notifier.Notify(Notification{
		Kind:     KindSessionExpired,
		Level:    LevelWarning,
		Title:    "Session expired",
		Message:  "Please sign in again",
		Redirect: "/login",
	})
	return true
}

// Token returns the bearer token, empty when there is none
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Current returns the current snapshot
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Authorize checks the session may open a view gated on role. An empty role only
// requires a signed-in user; admins pass every role.
func (s *Store) Authorize(role types.Role) (*types.User, error) {
	snap := s.Current()

	switch snap.State {
	case StateLoading:
		return nil, ErrSessionLoading
	case StateAnonymous:
		return nil, ErrNotAuthenticated
	}
	if role != "" && snap.User.Role != role && !snap.User.IsAdmin() {
		return nil, ErrForbidden
	}
	return snap.User, nil
}

// Subscribe returns a channel carrying the latest snapshot, starting with the
// current one. Slow readers only miss intermediate snapshots, never the last.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) save(ctx context.Context, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.persist.Put(ctx, storage.SessionKey, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) setLocked(state State, token string, user *types.User) {
	from := s.state
	s.state, s.token, s.user = state, token, user
	if from != state {
		metrics.Get().RecordSessionTransition(string(from), string(state))
	}

	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func displayName(u *types.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
