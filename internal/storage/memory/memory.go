package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

// Store implements an in-memory storage
type Store struct {
	users    *UserStore
	people   *PersonStore
	sessions *SessionStore
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		users:    &UserStore{data: make(map[domain.UserID]*domain.User)},
		people:   &PersonStore{data: make(map[string]*domain.Person)},
		sessions: &SessionStore{data: make(map[string]*domain.Session)},
	}
}

func (s *Store) Users() storage.UserStore       { return s.users }
func (s *Store) People() storage.PersonStore    { return s.people }
func (s *Store) Sessions() storage.SessionStore { return s.sessions }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }

// UserStore implements in-memory user storage
type UserStore struct {
	mu   sync.RWMutex
	data map[domain.UserID]*domain.User
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" || user.Username == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[user.ID]; exists {
		return storage.ErrAlreadyExists
	}
	for _, u := range s.data {
		if u.Username == user.Username || (user.Email != "" && strings.EqualFold(u.Email, user.Email)) {
			return storage.ErrAlreadyExists
		}
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	stored := *user
	s.data[user.ID] = &stored
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data {
		if user.Username == username {
			u := *user
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data {
		if strings.EqualFold(user.Email, email) {
			u := *user
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *UserStore) GetAll(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.data))
	for _, user := range s.data {
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[user.ID]; !exists {
		return storage.ErrNotFound
	}

	user.UpdatedAt = time.Now()
	stored := *user
	s.data[user.ID] = &stored
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// PersonStore implements in-memory people storage. Insertion order is kept so
// listings are stable.
type PersonStore struct {
	mu    sync.RWMutex
	order []string
	data  map[string]*domain.Person
}

func (s *PersonStore) Create(ctx context.Context, person *domain.Person) error {
	if person.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[person.ID]; exists {
		return storage.ErrAlreadyExists
	}

	person.CreatedAt = time.Now()
	person.UpdatedAt = time.Now()
	stored := *person
	s.data[person.ID] = &stored
	s.order = append(s.order, person.ID)
	return nil
}

func (s *PersonStore) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	person, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	p := *person
	return &p, nil
}

func (s *PersonStore) GetAll(ctx context.Context) ([]*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	people := make([]*domain.Person, 0, len(s.order))
	for _, id := range s.order {
		p := *s.data[id]
		people = append(people, &p)
	}
	return people, nil
}

func (s *PersonStore) Update(ctx context.Context, person *domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[person.ID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.Apply(person)
	existing.UpdatedAt = time.Now()
	person.CreatedAt = existing.CreatedAt
	person.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *PersonStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SessionStore implements in-memory session storage
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	stored.Attributes = maps.Clone(session.Attributes)
	s.data[session.ID] = &stored
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.data[id]
	if !exists || session.Expired(time.Now()) {
		return nil, storage.ErrNotFound
	}
	out := *session
	out.Attributes = maps.Clone(session.Attributes)
	if out.Attributes == nil {
		out.Attributes = make(map[string]any)
	}
	return &out, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, session := range s.data {
		if session.Expired(now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}
