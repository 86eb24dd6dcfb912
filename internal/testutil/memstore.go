// Package testutil holds in-memory stand-ins for the stores and collaborators
// used by service and handler tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/xxxsen/icec/internal/model"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
)

var ErrStoreDown = errors.New("store down")

type UserStore struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	Fault error
}

func NewUserStore() *UserStore {
	return &UserStore{byID: map[string]*model.User{}}
}

func (m *UserStore) Add(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[u.ID] = &cp
}

func (m *UserStore) CountByEmail(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

func (m *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fault != nil {
		return nil, m.Fault
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *UserStore) GetByID(ctx context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fault != nil {
		return nil, m.Fault
	}
	u, ok := m.byID[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *UserStore) UpdatePassword(ctx context.Context, userID, oldHash, newHash string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || u.PasswordHash != oldHash {
		return appErr.ErrNotFound
	}
	u.PasswordHash = newHash
	u.Mtime = mtime
	return nil
}

func (m *UserStore) List(ctx context.Context, limit uint) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fault != nil {
		return nil, m.Fault
	}
	var out []*model.User
	for _, u := range m.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *UserStore) Update(ctx context.Context, userID string, patch model.UserPatch, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fault != nil {
		return m.Fault
	}
	u, ok := m.byID[userID]
	if !ok {
		return appErr.ErrNotFound
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.IsAdmin != nil {
		u.IsAdmin = *patch.IsAdmin
	}
	u.Mtime = mtime
	return nil
}

func (m *UserStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[userID]; !ok {
		return appErr.ErrNotFound
	}
	delete(m.byID, userID)
	return nil
}

type PendingStore struct {
	mu    sync.Mutex
	items map[string]*model.PendingRegistration
	users *UserStore
	// CreateFault, when set, fails every Create.
	CreateFault error
}

func NewPendingStore(users *UserStore) *PendingStore {
	return &PendingStore{items: map[string]*model.PendingRegistration{}, users: users}
}

func (m *PendingStore) Get(email string) (*model.PendingRegistration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[email]
	if !ok {
		return nil, false
	}
	cp := *item
	return &cp, true
}

func (m *PendingStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *PendingStore) Create(ctx context.Context, item *model.PendingRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFault != nil {
		return m.CreateFault
	}
	if _, ok := m.items[item.Email]; ok {
		return appErr.ErrConflict
	}
	cp := *item
	m.items[item.Email] = &cp
	return nil
}

func (m *PendingStore) GetByEmail(ctx context.Context, email string) (*model.PendingRegistration, error) {
	item, ok := m.Get(email)
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return item, nil
}

func (m *PendingStore) DeleteExpiredByEmail(ctx context.Context, email string, now int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[email]
	if !ok || item.OTPExpiresAt >= now {
		return 0, nil
	}
	delete(m.items, email)
	return 1, nil
}

func (m *PendingStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for email, item := range m.items {
		if item.OTPExpiresAt < now {
			delete(m.items, email)
			n++
		}
	}
	return n, nil
}

func (m *PendingStore) Promote(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[user.Email]; !ok {
		return appErr.ErrNotFound
	}
	if m.users.CountByEmail(user.Email) > 0 {
		return appErr.ErrConflict
	}
	m.users.Add(user)
	delete(m.items, user.Email)
	return nil
}
