package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/auth"
	"github.com/rickgao/predict-core/internal/model"
)

// Backend is the subset of the API client the manager drives.
type Backend interface {
	SignIn(ctx context.Context, req api.SignInRequest) (*api.AuthResponse, error)
	SignUp(ctx context.Context, req api.SignUpRequest) (*api.AuthResponse, error)
	GetUser(ctx context.Context, userID uint64) (*api.APIUser, error)
}

// CredentialStore holds the bearer credential.
type CredentialStore interface {
	Read() (string, bool, error)
	Save(value string) error
	Clear() error
}

// TransitionObserver is notified of every state change.
type TransitionObserver interface {
	ObserveTransition(state string)
}

// Manager owns the session state machine.
type Manager struct {
	backend     Backend
	credentials CredentialStore
	snapshots   SnapshotStore
	logger      *slog.Logger
	observer    TransitionObserver

	// op serializes transitions. It is a channel so waiting respects ctx.
	op    chan struct{}
	state atomic.Pointer[State]

	restore singleflight.Group

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithObserver sets a transition observer (metrics).
func WithObserver(o TransitionObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager creates a signed-out Manager.
func NewManager(backend Backend, credentials CredentialStore, snapshots SnapshotStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:     backend,
		credentials: credentials,
		snapshots:   snapshots,
		logger:      slog.Default(),
		op:          make(chan struct{}, 1),
		subs:        make(map[int]chan State),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.state.Store(signedOut)
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	return *m.state.Load()
}

// Session returns the live session, if signed in.
func (m *Manager) Session() (model.Session, bool) {
	st := m.state.Load()
	if st.Status != SignedIn || st.Session == nil {
		return model.Session{}, false
	}
	return *st.Session, true
}

// Subscribe returns a channel that receives every subsequent state. The
// channel holds only the latest state; a slow reader skips intermediate ones.
// Call the returned func to stop and close the channel.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

// SignIn authenticates with email and password. On success the credential
// is stored and a snapshot persisted. On failure the previous state is
// restored and the backend error returned unchanged.
func (m *Manager) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	if err := m.lock(ctx); err != nil {
		return model.Session{}, err
	}
	defer m.unlock()

	prior := m.state.Load()
	m.set(&State{Status: Authenticating})

	resp, err := m.backend.SignIn(ctx, api.SignInRequest{Email: email, Password: password})
	if err != nil {
		m.set(prior)
		return model.Session{}, err
	}

	sess, err := m.adopt(resp)
	if err != nil {
		m.set(prior)
		return model.Session{}, err
	}

	if err := m.snapshots.Save(NewSnapshot(sess)); err != nil {
		m.logger.Warn("persist session snapshot failed", "user_id", sess.User.ID, "error", err)
	}

	m.set(signedInState(sess))
	m.logger.Info("signed in", "user_id", sess.User.ID)
	return sess, nil
}

// SignUp creates an account and signs into it. Unlike SignIn no snapshot is
// persisted, so the next process start restores from the credential alone.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) (model.Session, error) {
	if err := m.lock(ctx); err != nil {
		return model.Session{}, err
	}
	defer m.unlock()

	prior := m.state.Load()
	m.set(&State{Status: Authenticating})

	resp, err := m.backend.SignUp(ctx, api.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		m.set(prior)
		return model.Session{}, err
	}

	sess, err := m.adopt(resp)
	if err != nil {
		m.set(prior)
		return model.Session{}, err
	}

	m.set(signedInState(sess))
	m.logger.Info("signed up", "user_id", sess.User.ID)
	return sess, nil
}

// adopt stores the issued credential and builds the session.
func (m *Manager) adopt(resp *api.AuthResponse) (model.Session, error) {
	sess := model.Session{Credential: resp.Token, User: resp.User.ToModel()}
	if !sess.Valid() {
		return model.Session{}, &api.Error{
			Kind: api.KindDecoding,
			Err:  errors.New("auth response missing token or user id"),
		}
	}

	if err := m.credentials.Save(sess.Credential); err != nil {
		return model.Session{}, fmt.Errorf("store credential: %w", err)
	}
	return sess, nil
}

// RestoreSessionIfNeeded re-establishes a session from persisted state. It
// is a no-op when already signed in or when no credential is stored.
// Restoration failures end in a clean sign-out and are not returned; the
// only error is ctx's, when the caller stops waiting.
//
// Concurrent callers share one restoration. The shared work is not tied to
// any single caller's context, so abandoning the wait never leaves state
// half-updated.
func (m *Manager) RestoreSessionIfNeeded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.state.Load().Status == SignedIn {
		return nil
	}

	workCtx := context.WithoutCancel(ctx)
	ch := m.restore.DoChan("restore", func() (any, error) {
		m.lockWait()
		defer m.unlock()
		m.restoreLocked(workCtx)
		return nil, nil
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) restoreLocked(ctx context.Context) {
	if m.state.Load().Status == SignedIn {
		return
	}

	credential, ok, err := m.credentials.Read()
	if err != nil {
		m.logger.Warn("read credential failed, signing out", "error", err)
		m.signOutLocked()
		return
	}
	if !ok {
		m.set(signedOut)
		return
	}

	snap := m.loadSnapshot(credential)

	m.set(&State{Status: Authenticating})

	if snap != nil {
		if _, err := m.backend.GetUser(ctx, snap.User.ID); err != nil {
			m.logger.Info("snapshot revalidation failed, signing out", "user_id", snap.User.ID, "error", err)
			m.signOutLocked()
			return
		}

		sess := snap.Session()
		m.set(signedInState(sess))
		m.logger.Info("session restored from snapshot", "user_id", sess.User.ID)
		return
	}

	userID, err := auth.SubjectFromToken(credential)
	if err != nil {
		m.logger.Info("credential carries no user id, signing out", "error", err)
		m.signOutLocked()
		return
	}

	user, err := m.backend.GetUser(ctx, userID)
	if err != nil {
		m.logger.Info("credential revalidation failed, signing out", "user_id", userID, "error", err)
		m.signOutLocked()
		return
	}

	sess := model.Session{Credential: credential, User: user.ToModel()}
	if err := m.snapshots.Save(NewSnapshot(sess)); err != nil {
		m.logger.Warn("persist session snapshot failed", "user_id", sess.User.ID, "error", err)
	}

	m.set(signedInState(sess))
	m.logger.Info("session restored from credential", "user_id", sess.User.ID)
}

// loadSnapshot returns a usable snapshot for credential, or nil. Unreadable
// snapshots and snapshots for a different credential are discarded.
func (m *Manager) loadSnapshot(credential string) *Snapshot {
	snap, err := m.snapshots.Load()
	if err != nil {
		m.logger.Warn("discarding unreadable session snapshot", "error", err)
		m.clearSnapshot()
		return nil
	}
	if snap == nil {
		return nil
	}
	if snap.Credential != credential || snap.User.ID == 0 {
		m.logger.Info("discarding session snapshot for another credential")
		m.clearSnapshot()
		return nil
	}
	return snap
}

// SignOut clears the credential and snapshot. It never fails; storage
// errors are logged.
func (m *Manager) SignOut() {
	m.lockWait()
	defer m.unlock()
	m.signOutLocked()
}

// HandleAuthError signs out when err reports an invalid or missing
// credential. It reports whether it did.
func (m *Manager) HandleAuthError(err error) bool {
	if !errors.Is(err, api.ErrAuthenticationRequired) {
		return false
	}
	m.SignOut()
	return true
}

func (m *Manager) signOutLocked() {
	if err := m.credentials.Clear(); err != nil {
		m.logger.Warn("clear credential failed", "error", err)
	}
	m.clearSnapshot()
	m.set(signedOut)
}

func (m *Manager) clearSnapshot() {
	if err := m.snapshots.Clear(); err != nil {
		m.logger.Warn("clear session snapshot failed", "error", err)
	}
}

// set publishes st. Callers hold the operation lock.
func (m *Manager) set(st *State) {
	prev := m.state.Swap(st)
	if prev == st {
		return
	}

	if m.observer != nil {
		m.observer.ObserveTransition(st.Status.String())
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- *st:
			continue
		default:
		}
		// Full: drop the stale state and replace it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- *st:
		default:
		}
	}
}

func (m *Manager) lock(ctx context.Context) error {
	select {
	case m.op <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) lockWait() {
	m.op <- struct{}{}
}

func (m *Manager) unlock() {
	<-m.op
}
