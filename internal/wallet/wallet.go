// Package wallet holds the active signing session and the selected network.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/matrixise/xpr-wallet/internal/actions"
	"github.com/matrixise/xpr-wallet/internal/network"
)

// AppID identifies this application to the signer when sessions are
// created and removed.
const AppID = "xprtransfer"

// AppName is shown by signers when asking for approval.
const AppName = "XPR Transfer"

var errNoConnection = errors.New("failed to establish wallet connection")

// Status is the connection state.
type Status string

const (
	Disconnected Status = "disconnected"
	Connecting   Status = "connecting"
	Connected    Status = "connected"
)

// Link is the signer side of a session.
type Link interface {
	RemoveSession(ctx context.Context, appID string, auth actions.Authorization, chainID string) error
}

// Linker creates sessions with an external signer.
type Linker interface {
	Connect(ctx context.Context, net network.Network) (actions.Session, Link, error)
	// Restore re-establishes a previous session without user interaction.
	// It returns a nil session when there is nothing to restore.
	Restore(ctx context.Context, net network.Network) (actions.Session, Link, error)
}

// Resolver turns a network name into a descriptor.
type Resolver func(name network.Name) (network.Network, error)

func defaultResolver(name network.Name) (network.Network, error) {
	return network.Get(string(name))
}

// Option configures a Store.
type Option func(*Store)

// WithStateFile persists the network selection to f.
func WithStateFile(f *StateFile) Option {
	return func(s *Store) { s.stateFile = f }
}

// WithDefaultNetwork selects name when nothing was persisted.
func WithDefaultNetwork(name network.Name) Option {
	return func(s *Store) { s.defaultNet = name }
}

// WithResolver replaces network.Get, typically to apply endpoint overrides.
func WithResolver(r Resolver) Option {
	return func(s *Store) { s.resolve = r }
}

// Store is the process-wide session and network state. At most one session
// is live at a time.
type Store struct {
	linker     Linker
	stateFile  *StateFile
	resolve    Resolver
	defaultNet network.Name
	logger     *slog.Logger

	mu      sync.Mutex
	status  Status
	session actions.Session
	link    Link
	net     network.Network
	err     error
	hooks   []func()
	// epoch changes on every disconnect and network switch so that a
	// connect finishing afterwards is dropped.
	epoch uint64
}

// New creates a disconnected store on the persisted network, or the
// default network (network.Default unless overridden) when nothing was
// persisted.
func New(linker Linker, opts ...Option) (*Store, error) {
	s := &Store{
		linker:     linker,
		resolve:    defaultResolver,
		defaultNet: network.Default,
		logger:     slog.Default().With("component", "wallet"),
		status:     Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}

	name := s.defaultNet
	if s.stateFile != nil {
		loaded, ok, err := s.stateFile.read()
		if err != nil {
			s.logger.Warn("Ignoring unreadable wallet state", "path", s.stateFile.Path(), "error", err)
		}
		if ok {
			name = loaded
		}
	}

	net, err := s.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve network: %w", err)
	}
	s.net = net
	return s, nil
}

// OnInvalidate registers fn to run whenever the session ends or the network
// changes. Stores derived from the session clear themselves there.
func (s *Store) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Connect asks the signer for a new session. It is a no-op while a connect
// is in progress or a session is live. Failures are kept in Err.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.status != Disconnected {
		s.mu.Unlock()
		return nil
	}
	s.status = Connecting
	s.err = nil
	net, epoch := s.net, s.epoch
	s.mu.Unlock()

	session, link, err := s.linker.Connect(ctx, net)
	if err == nil && (session == nil || link == nil) {
		err = errNoConnection
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return nil
	}
	if err != nil {
		s.status = Disconnected
		s.err = err
		s.logger.Error("Failed to connect wallet", "network", net.Name, "error", err)
		return err
	}
	s.session, s.link, s.status = session, link, Connected
	s.logger.Info("Wallet connected", "network", net.Name, "actor", session.Auth().Actor)
	return nil
}

// Restore silently re-establishes a previous session. It does nothing when a
// session exists and never reports failures.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.status != Disconnected {
		s.mu.Unlock()
		return
	}
	s.status = Connecting
	net, epoch := s.net, s.epoch
	s.mu.Unlock()

	session, link, err := s.linker.Restore(ctx, net)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	if err != nil || session == nil || link == nil {
		if err != nil {
			s.logger.Debug("No session restored", "network", net.Name, "error", err)
		}
		s.status = Disconnected
		return
	}
	s.session, s.link, s.status = session, link, Connected
}

// Disconnect asks the signer to drop the session, once and ignoring
// failures, then clears local session state.
func (s *Store) Disconnect(ctx context.Context) {
	s.mu.Lock()
	session, link, chainID := s.session, s.link, s.net.ChainID
	s.mu.Unlock()

	if session != nil && link != nil {
		if err := link.RemoveSession(ctx, AppID, session.Auth(), chainID); err != nil {
			s.logger.Warn("Failed to remove signer session", "error", err)
		}
	}

	s.mu.Lock()
	s.epoch++
	s.session, s.link = nil, nil
	s.status = Disconnected
	s.err = nil
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// SetNetwork switches the active network, disconnecting first when a
// session is live. It switches even when name is the current network.
func (s *Store) SetNetwork(ctx context.Context, name network.Name) error {
	net, err := s.resolve(name)
	if err != nil {
		return err
	}

	if s.Session() != nil {
		s.Disconnect(ctx)
	}

	s.mu.Lock()
	s.epoch++
	s.net = net
	if s.status == Connecting {
		s.status = Disconnected
	}
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	if s.stateFile != nil {
		if err := s.stateFile.Save(net.Name); err != nil {
			return err
		}
	}
	return nil
}

// Session returns the live session or nil.
func (s *Store) Session() actions.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Account returns the actor of the live session, or "" when disconnected.
func (s *Store) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.Auth().Actor
}

func (s *Store) Network() network.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the last connect failure.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}
