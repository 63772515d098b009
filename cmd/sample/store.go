package main

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// User is the sample resource.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type userStore struct {
	mu     sync.RWMutex
	users  map[int]*User
	nextID int
}

func newUserStore() *userStore {
	now := time.Now().UTC()
	return &userStore{
		users: map[int]*User{
			1: {ID: 1, Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: now},
			2: {ID: 2, Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: now},
		},
		nextID: 3,
	}
}

func (s *userStore) list(role string, limit int) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b User) int { return a.ID - b.ID })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *userStore) get(id int) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (s *userStore) create(name, email, role string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:        s.nextID,
		Name:      name,
		Email:     strings.ToLower(email),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.users[u.ID] = u
	return *u
}

func (s *userStore) update(id int, name, email, role string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = strings.ToLower(email)
	}
	if role != "" {
		u.Role = role
	}
	return *u, true
}

func (s *userStore) delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}
