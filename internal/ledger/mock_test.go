package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/quotelane/exchange-cli/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *mockStore) UpdateConnection(ctx context.Context, conn *model.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *mockStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *mockStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *mockStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, updatedAt time.Time) error {
	args := m.Called(ctx, id, status, updatedAt)
	return args.Error(0)
}

func (m *mockStore) ListLeads(ctx context.Context, f Filter) ([]model.Lead, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) CountLeadsSince(ctx context.Context, connectionID string, since time.Time) (int, error) {
	args := m.Called(ctx, connectionID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ExpireLeadsBefore(ctx context.Context, cutoff, updatedAt time.Time) (int, error) {
	args := m.Called(ctx, cutoff, updatedAt)
	return args.Int(0), args.Error(1)
}

// --- In-Memory Store ---

// memStore is a map-backed Store for funnel and cap tests.
type memStore struct {
	mu    sync.Mutex
	seq   int
	conns map[string]*model.Connection
	leads map[string]*model.Lead
}

func newMemStore() *memStore {
	return &memStore{
		conns: make(map[string]*model.Connection),
		leads: make(map[string]*model.Lead),
	}
}

func (m *memStore) putConnection(conn *model.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *conn
	m.conns[conn.ID] = &c
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

func (m *memStore) CreateLead(_ context.Context, lead *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead.ID == "" {
		m.seq++
		lead.ID = fmt.Sprintf("lead-%d", m.seq)
	}
	l := *lead
	m.leads[lead.ID] = &l
	return nil
}

func (m *memStore) GetLead(_ context.Context, id string) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead not found: %s", id)
	}
	lp := *l
	return &lp, nil
}

func (m *memStore) UpdateLeadStatus(_ context.Context, id string, status model.LeadStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return fmt.Errorf("lead not found: %s", id)
	}
	l.Status = status
	l.UpdatedAt = updatedAt
	return nil
}

func (m *memStore) ListLeads(_ context.Context, f Filter) ([]model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Lead
	for _, l := range m.leads {
		if f.ConnectionID != "" && l.ConnectionID != f.ConnectionID {
			continue
		}
		if f.ProviderID != "" && l.ProviderID != f.ProviderID {
			continue
		}
		if f.BuyerID != "" && l.BuyerID != f.BuyerID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) CountLeadsSince(_ context.Context, connectionID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.leads {
		if l.ConnectionID == connectionID && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ExpireLeadsBefore(_ context.Context, cutoff, updatedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.leads {
		if l.Status == model.LeadPending && l.CreatedAt.Before(cutoff) {
			l.Status = model.LeadExpired
			l.UpdatedAt = updatedAt
			n++
		}
	}
	return n, nil
}
