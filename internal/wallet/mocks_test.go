package wallet

import (
	"context"

	eos "github.com/eoscanada/eos-go"
	"github.com/stretchr/testify/mock"

	"github.com/matrixise/xpr-wallet/internal/actions"
	"github.com/matrixise/xpr-wallet/internal/network"
)

type mockLinker struct {
	mock.Mock
}

func (m *mockLinker) Connect(ctx context.Context, net network.Network) (actions.Session, Link, error) {
	args := m.Called(ctx, net)
	return sessionArg(args, 0), linkArg(args, 1), args.Error(2)
}

func (m *mockLinker) Restore(ctx context.Context, net network.Network) (actions.Session, Link, error) {
	args := m.Called(ctx, net)
	return sessionArg(args, 0), linkArg(args, 1), args.Error(2)
}

func sessionArg(args mock.Arguments, i int) actions.Session {
	s, _ := args.Get(i).(actions.Session)
	return s
}

func linkArg(args mock.Arguments, i int) Link {
	l, _ := args.Get(i).(Link)
	return l
}

type mockLink struct {
	mock.Mock
}

func (m *mockLink) RemoveSession(ctx context.Context, appID string, auth actions.Authorization, chainID string) error {
	return m.Called(ctx, appID, auth, chainID).Error(0)
}

type stubSession struct {
	auth actions.Authorization
}

func (s stubSession) Auth() actions.Authorization {
	return s.auth
}

func (s stubSession) Transact(context.Context, []*eos.Action) (*actions.Receipt, error) {
	return &actions.Receipt{TransactionID: "abc", BlockNum: 1}, nil
}
