package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/repository"
	"github.com/noah-isme/sma-admin-panel/pkg/password"
)

var errStorageDown = errors.New("connection refused")

func newTestPool() *password.Pool {
	return password.NewPool(password.NewArgon2idHasher(password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}), 4, nil)
}

func strPtr(s string) *string { return &s }

type memUsers struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID int64
	calls  int
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*models.User{}, nextID: 1}
}

func (m *memUsers) add(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID
		m.nextID++
	}
	copied := u
	m.users[u.Username] = &copied
	return &copied
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.users[username]
	return ok, nil
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.Username] = &copied
	return nil
}

func (m *memUsers) ListAll(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

type memSessions struct {
	mu        sync.Mutex
	sessions  map[string]models.Session
	now       time.Time
	calls     int
	createErr error
	liveErr   error
	deleteErr error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]models.Session{}, now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (m *memSessions) Create(ctx context.Context, userID int64, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.createErr != nil {
		return m.createErr
	}
	s, err := models.NewSession(userID, sessionID, m.now, ttl)
	if err != nil {
		return err
	}
	m.sessions[sessionID] = *s
	return nil
}

func (m *memSessions) IsLive(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.liveErr != nil {
		return false, m.liveErr
	}
	s, ok := m.sessions[sessionID]
	return ok && s.LiveAt(m.now), nil
}

func (m *memSessions) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memCarrier struct {
	values map[string]json.RawMessage
	purged bool
	setErr error
}

func newMemCarrier() *memCarrier {
	return &memCarrier{values: map[string]json.RawMessage{}}
}

func (c *memCarrier) Get(key string, dest interface{}) (bool, error) {
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memCarrier) Set(key string, value interface{}) error {
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *memCarrier) Remove(key string) {
	delete(c.values, key)
}

func (c *memCarrier) Purge() {
	c.values = map[string]json.RawMessage{}
	c.purged = true
}

type memRoles struct {
	mu    sync.Mutex
	roles map[string]models.Role
	err   error
}

func newMemRoles() *memRoles {
	return &memRoles{roles: map[string]models.Role{}}
}

func (m *memRoles) EnsureDefaults(ctx context.Context, roles []models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range roles {
		if _, ok := m.roles[r.Name]; ok {
			continue
		}
		r.ID = int64(len(m.roles) + 1)
		m.roles[r.Name] = r
	}
	return nil
}

func (m *memRoles) FindByName(ctx context.Context, name string) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}
