package actions

import (
	"context"

	eos "github.com/eoscanada/eos-go"
	"github.com/stretchr/testify/mock"
)

type mockSession struct {
	mock.Mock
	auth Authorization
}

func newMockSession() *mockSession {
	return &mockSession{auth: Authorization{Actor: "alice", Permission: "active"}}
}

func (m *mockSession) Auth() Authorization {
	return m.auth
}

func (m *mockSession) Transact(ctx context.Context, actions []*eos.Action) (*Receipt, error) {
	args := m.Called(ctx, actions)
	receipt, _ := args.Get(0).(*Receipt)
	return receipt, args.Error(1)
}
