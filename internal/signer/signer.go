// Package signer is a local key signer for command line use. It holds a WIF
// private key in memory for the lifetime of a session and signs and pushes
// transactions through the network's first RPC endpoint.
package signer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	eos "github.com/eoscanada/eos-go"

	"github.com/matrixise/xpr-wallet/internal/actions"
	"github.com/matrixise/xpr-wallet/internal/config"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/validate"
	"github.com/matrixise/xpr-wallet/internal/wallet"
)

// PrivateKeyEnv holds the WIF key used to sign. It is only ever read from
// the environment.
const PrivateKeyEnv = "XPR_WALLET_PRIVATE_KEY"

var (
	ErrNoKey          = errors.New("no private key configured")
	ErrInvalidAccount = errors.New("invalid signing account")
	ErrSessionRemoved = errors.New("session was removed")
)

// KeySource returns the WIF private key, or "" when none is configured.
type KeySource func() string

// EnvKey reads the key from PrivateKeyEnv.
func EnvKey() string {
	return config.EnvSecret(PrivateKeyEnv)
}

type pusher interface {
	SignPushActions(ctx context.Context, a ...*eos.Action) (*eos.PushTransactionFullResp, error)
}

// KeyLinker creates sessions for a fixed account and permission.
type KeyLinker struct {
	account    string
	permission string
	key        KeySource
	newAPI     func(endpoint string, signer eos.Signer) pusher
}

// NewKeyLinker signs as account@permission with the key returned by key.
// permission defaults to "active".
func NewKeyLinker(account, permission string, key KeySource) *KeyLinker {
	if permission == "" {
		permission = "active"
	}
	if key == nil {
		key = EnvKey
	}
	return &KeyLinker{
		account:    account,
		permission: permission,
		key:        key,
		newAPI: func(endpoint string, signer eos.Signer) pusher {
			api := eos.New(endpoint)
			api.SetSigner(signer)
			return api
		},
	}
}

// Connect loads the key and returns a session bound to net.
func (l *KeyLinker) Connect(ctx context.Context, net network.Network) (actions.Session, wallet.Link, error) {
	s, err := l.connect(ctx, net)
	if err != nil {
		return nil, nil, err
	}
	return s, &keyLink{session: s}, nil
}

// Restore connects when a key is configured and returns a nil session
// otherwise.
func (l *KeyLinker) Restore(ctx context.Context, net network.Network) (actions.Session, wallet.Link, error) {
	if l.key() == "" {
		return nil, nil, nil
	}
	return l.Connect(ctx, net)
}

func (l *KeyLinker) connect(ctx context.Context, net network.Network) (*Session, error) {
	if !validate.Recipient(l.account) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, l.account)
	}
	wif := l.key()
	if wif == "" {
		return nil, fmt.Errorf("%w: set %s", ErrNoKey, PrivateKeyEnv)
	}
	if len(net.Endpoints) == 0 {
		return nil, fmt.Errorf("network %s has no RPC endpoint", net.Name)
	}

	keys := eos.NewKeyBag()
	if err := keys.ImportPrivateKey(ctx, wif); err != nil {
		return nil, fmt.Errorf("failed to import private key: %w", err)
	}

	return &Session{
		auth:    actions.Authorization{Actor: l.account, Permission: l.permission},
		chainID: net.ChainID,
		api:     l.newAPI(net.Endpoints[0], keys),
	}, nil
}

// Session signs with an in-memory key.
type Session struct {
	auth    actions.Authorization
	chainID string

	mu  sync.Mutex
	api pusher
}

func (s *Session) Auth() actions.Authorization {
	return s.auth
}

// Transact signs and pushes the actions in one transaction.
func (s *Session) Transact(ctx context.Context, acts []*eos.Action) (*actions.Receipt, error) {
	s.mu.Lock()
	api := s.api
	s.mu.Unlock()
	if api == nil {
		return nil, ErrSessionRemoved
	}

	resp, err := api.SignPushActions(ctx, acts...)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &actions.Receipt{TransactionID: resp.TransactionID, BlockNum: resp.BlockNum}, nil
}

func (s *Session) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = nil
}

type keyLink struct {
	session *Session
}

// RemoveSession forgets the key of the session it was created with.
func (k *keyLink) RemoveSession(_ context.Context, appID string, auth actions.Authorization, chainID string) error {
	if appID != wallet.AppID {
		return fmt.Errorf("unknown app id %q", appID)
	}
	if auth != k.session.auth || chainID != k.session.chainID {
		return errors.New("session does not belong to this link")
	}
	k.session.drop()
	return nil
}
