package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// =============================================================================
// Mock Types
// =============================================================================

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, ref domain.BlobRef, r io.Reader, size int64, contentType string) (int64, error) {
	args := m.Called(ctx, ref, r, size, contentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBlobStore) URL(ctx context.Context, ref domain.BlobRef) (string, *time.Time, error) {
	args := m.Called(ctx, ref)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*time.Time), args.Error(2)
}

func (m *mockBlobStore) Delete(ctx context.Context, ref domain.BlobRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type mockTokenIssuer struct {
	mock.Mock
}

func (m *mockTokenIssuer) Issue(user *domain.User) (string, time.Time, error) {
	args := m.Called(user)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) (*repository.ListResult[domain.Product], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult[domain.Product]), args.Error(1)
}

func (m *mockProductRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// In-memory stores
// =============================================================================

type memProducts struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Product
}

func newMemProducts(products ...*domain.Product) *memProducts {
	m := &memProducts{items: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		m.items[p.ID] = p
	}
	return m
}

func (m *memProducts) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.items[product.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) List(ctx context.Context, filter repository.ProductFilter) (*repository.ListResult[domain.Product], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*domain.Product, 0, len(m.items))
	for _, p := range m.items {
		if filter.PaidOnly && !p.IsPaid {
			continue
		}
		cp := *p
		items = append(items, &cp)
	}
	return &repository.ListResult[domain.Product]{Items: items, Total: int64(len(items)), Limit: filter.Limit}, nil
}

func (m *memProducts) IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	p.DownloadCount++
	return p.DownloadCount, nil
}

func (m *memProducts) count(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].DownloadCount
}

type memTickets struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.PaymentRequest
	order []uuid.UUID
}

func newMemTickets() *memTickets {
	return &memTickets{items: make(map[uuid.UUID]*domain.PaymentRequest)}
}

func (m *memTickets) Create(ctx context.Context, req *domain.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.items[req.ID] = &cp
	m.order = append(m.order, req.ID)
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTickets) List(ctx context.Context, filter repository.PaymentRequestFilter) (*repository.ListResult[domain.PaymentRequest], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []*domain.PaymentRequest{}
	for i := len(m.order) - 1; i >= 0; i-- {
		t := m.items[m.order[i]]
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		cp := *t
		items = append(items, &cp)
	}
	return &repository.ListResult[domain.PaymentRequest]{Items: items, Total: int64(len(items)), Limit: filter.Limit}, nil
}

func (m *memTickets) Decide(ctx context.Context, id uuid.UUID, status domain.TicketStatus, decidedBy uuid.UUID, decidedAt time.Time) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if t.Status != domain.TicketPending {
		cp := *t
		return &cp, repository.ErrStateChanged
	}
	t.Status = status
	t.DecidedAt = &decidedAt
	t.DecidedBy = &decidedBy
	cp := *t
	return &cp, nil
}

type memUsers struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.User
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{items: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsBlocked = blocked
	return nil
}

func (m *memUsers) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*domain.User, 0, len(m.items))
	for _, u := range m.items {
		cp := *u
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return &repository.ListResult[domain.User]{Items: items, Total: int64(len(items)), Limit: opts.Limit}, nil
}

type memChat struct {
	mu    sync.Mutex
	items []*domain.ChatMessage
}

func (m *memChat) Create(ctx context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.items = append(m.items, &cp)
	return nil
}

func (m *memChat) List(ctx context.Context, opts repository.ListOptions) ([]*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ChatMessage, 0, len(m.items))
	if opts.Descending {
		for i := len(m.items) - 1; i >= 0; i-- {
			out = append(out, m.items[i])
		}
		return out, nil
	}
	return append(out, m.items...), nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []*domain.Notification
	err   error
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *memNotifications) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Notification, 0, len(m.items))
	if opts.Descending {
		for i := len(m.items) - 1; i >= 0; i-- {
			out = append(out, m.items[i])
		}
		return out, nil
	}
	return append(out, m.items...), nil
}

func (m *memNotifications) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// =============================================================================
// Fixtures
// =============================================================================

func testUser(admin, blocked bool) *domain.User {
	u := domain.NewUser(uuid.NewString()+"@example.com", "hash")
	u.IsAdmin = admin
	u.IsBlocked = blocked
	return u
}

func principalOf(u *domain.User) domain.Principal {
	return domain.PrincipalFromUser(u)
}

const fifteenWords = "I paid for this product last week through the bank and attach the receipt here"
