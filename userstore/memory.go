package userstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/tokenkeeper"
)

// Memory is a process-local UserStore. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]tokenkeeper.UserRecord
	byEmail    map[string]string
	byUsername map[string]string
	failure    error
}

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]tokenkeeper.UserRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// FailWith makes every call return err until called again with nil.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.failure = err
	m.mu.Unlock()
}

func (m *Memory) FindByEmailOrUsername(_ context.Context, email, username string) (tokenkeeper.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return tokenkeeper.UserRecord{}, m.failure
	}
	if id, ok := m.byEmail[strings.ToLower(email)]; ok {
		return m.byID[id], nil
	}
	if id, ok := m.byUsername[strings.ToLower(username)]; ok {
		return m.byID[id], nil
	}
	return tokenkeeper.UserRecord{}, ErrNotFound
}

func (m *Memory) FindByEmail(_ context.Context, email string) (tokenkeeper.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return tokenkeeper.UserRecord{}, m.failure
	}
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return tokenkeeper.UserRecord{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) FindByID(_ context.Context, id string) (tokenkeeper.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failure != nil {
		return tokenkeeper.UserRecord{}, m.failure
	}
	u, ok := m.byID[id]
	if !ok {
		return tokenkeeper.UserRecord{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) Insert(_ context.Context, u tokenkeeper.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}

	email := strings.ToLower(u.Email)
	username := strings.ToLower(u.Username)
	if _, ok := m.byID[u.ID]; ok {
		return ErrConflict
	}
	if _, ok := m.byEmail[email]; ok {
		return ErrConflict
	}
	if _, ok := m.byUsername[username]; ok {
		return ErrConflict
	}

	u.Email = email
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	m.byUsername[username] = u.ID
	return nil
}

func (m *Memory) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	m.byID[id] = u
	return nil
}

// SetActive flips the active flag of a stored user.
func (m *Memory) SetActive(id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	m.byID[id] = u
	return nil
}

// Delete removes a user. Deleting an unknown id is not an error.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	delete(m.byEmail, strings.ToLower(u.Email))
	delete(m.byUsername, strings.ToLower(u.Username))
}
