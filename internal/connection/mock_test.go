package connection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/quotelane/exchange-cli/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateConnection(ctx context.Context, conn *model.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *mockStore) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *mockStore) LiveConnectionByPair(ctx context.Context, providerID, buyerID string) (*model.Connection, error) {
	args := m.Called(ctx, providerID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *mockStore) UpdateConnection(ctx context.Context, conn *model.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *mockStore) ListConnections(ctx context.Context, f Filter) ([]model.Connection, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Connection), args.Error(1)
}

func (m *mockStore) CountActiveByParty(ctx context.Context, role model.Role, partyID string) (int, error) {
	args := m.Called(ctx, role, partyID)
	return args.Int(0), args.Error(1)
}

// --- In-Memory Store ---

// memStore is a map-backed Store for lifecycle tests.
type memStore struct {
	mu    sync.Mutex
	seq   int
	conns map[string]*model.Connection
}

func newMemStore() *memStore {
	return &memStore{conns: make(map[string]*model.Connection)}
}

func (m *memStore) CreateConnection(_ context.Context, conn *model.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn.ID == "" {
		m.seq++
		conn.ID = fmt.Sprintf("conn-%d", m.seq)
	}
	c := *conn
	m.conns[conn.ID] = &c
	return nil
}

func (m *memStore) GetConnection(_ context.Context, id string) (*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[id]
	if !ok {
		return nil, fmt.Errorf("connection not found: %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) LiveConnectionByPair(_ context.Context, providerID, buyerID string) (*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		if c.ProviderID == providerID && c.BuyerID == buyerID && c.Status.Live() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateConnection(_ context.Context, conn *model.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[conn.ID]; !ok {
		return fmt.Errorf("connection not found: %s", conn.ID)
	}
	c := *conn
	m.conns[conn.ID] = &c
	return nil
}

func (m *memStore) ListConnections(_ context.Context, f Filter) ([]model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Connection
	for _, c := range m.conns {
		if f.ProviderID != "" && c.ProviderID != f.ProviderID {
			continue
		}
		if f.BuyerID != "" && c.BuyerID != f.BuyerID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) CountActiveByParty(_ context.Context, role model.Role, partyID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.conns {
		if c.Status != model.StatusActive {
			continue
		}
		switch role {
		case model.RoleProvider:
			if c.ProviderID == partyID {
				n++
			}
		case model.RoleBuyer:
			if c.BuyerID == partyID {
				n++
			}
		}
	}
	return n, nil
}
