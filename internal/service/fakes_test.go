package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/server24/provisiond/internal/domain"
	app_errors "github.com/server24/provisiond/internal/errors"
)

// memSubscribers is an in-memory domain.SubscriberRepository.
type memSubscribers struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Subscriber
}

func newMemSubscribers() *memSubscribers {
	return &memSubscribers{items: make(map[int64]*domain.Subscriber)}
}

func (m *memSubscribers) GetByID(ctx context.Context, id int64) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.items[id]
	if !ok {
		return nil, app_errors.ErrSubscriberNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *memSubscribers) GetByExternalID(ctx context.Context, externalID int64) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.items {
		if sub.ExternalID == externalID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, app_errors.ErrSubscriberNotFound
}

func (m *memSubscribers) Upsert(ctx context.Context, sub *domain.Subscriber) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ExternalID == sub.ExternalID {
			existing.Username = sub.Username
			existing.FullName = sub.FullName
			copied := *existing
			return &copied, nil
		}
	}

	m.nextID++
	stored := *sub
	stored.ID = m.nextID
	stored.Active = true
	stored.CreatedAt = time.Now().UTC()
	m.items[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *memSubscribers) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.items[id]
	if !ok {
		return 0, app_errors.ErrSubscriberNotFound
	}
	if sub.Balance+delta < 0 {
		return 0, app_errors.ErrInsufficientBalance
	}
	sub.Balance += delta
	return sub.Balance, nil
}

func (m *memSubscribers) List(ctx context.Context) ([]*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]*domain.Subscriber, 0, len(m.items))
	for _, sub := range m.items {
		copied := *sub
		subs = append(subs, &copied)
	}
	return subs, nil
}

// memCredentials is an in-memory domain.CredentialRepository.
type memCredentials struct {
	mu    sync.Mutex
	items map[string]*domain.Credential
}

func newMemCredentials() *memCredentials {
	return &memCredentials{items: make(map[string]*domain.Credential)}
}

func (m *memCredentials) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.items[id.String()]
	if !ok {
		return nil, app_errors.ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

func (m *memCredentials) Create(ctx context.Context, cred *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Port == cred.Port {
			return app_errors.ErrPortInUse
		}
	}
	copied := *cred
	m.items[cred.ID.String()] = &copied
	return nil
}

func (m *memCredentials) ListAll(ctx context.Context) ([]*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds := make([]*domain.Credential, 0, len(m.items))
	for _, cred := range m.items {
		copied := *cred
		creds = append(creds, &copied)
	}
	return creds, nil
}

func (m *memCredentials) ListBySubscriber(ctx context.Context, subscriberID int64) ([]*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var creds []*domain.Credential
	for _, cred := range m.items {
		if cred.SubscriberID == subscriberID {
			copied := *cred
			creds = append(creds, &copied)
		}
	}
	return creds, nil
}

func (m *memCredentials) ListPorts(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ports := make([]int, 0, len(m.items))
	for _, cred := range m.items {
		ports = append(ports, cred.Port)
	}
	return ports, nil
}

func (m *memCredentials) UpdateExpiry(ctx context.Context, id domain.CredentialID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.items[id.String()]
	if !ok {
		return app_errors.ErrCredentialNotFound
	}
	cred.ExpiresAt = expiresAt
	return nil
}

func (m *memCredentials) UpdateUsage(ctx context.Context, id domain.CredentialID, usedBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.items[id.String()]
	if !ok {
		return app_errors.ErrCredentialNotFound
	}
	cred.UsedBytes = usedBytes
	return nil
}

func (m *memCredentials) Delete(ctx context.Context, id domain.CredentialID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id.String()]; !ok {
		return app_errors.ErrCredentialNotFound
	}
	delete(m.items, id.String())
	return nil
}

// stubReloader records reload attempts and can be told to fail.
type stubReloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubReloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *stubReloader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
