// Package accounts keeps the user directory: registration and the mock login.
package accounts

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"lucky_lottery/internal/db"
	"lucky_lottery/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt" // Password hashing
)

var (
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Opener opens a ledger account for a newly registered user
type Opener interface {
	Open(userID string)
}

// Service is the user directory
type Service struct {
	persister db.Persister
	ledger    Opener
	cost      int

	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

// Option customizes a Service
type Option func(*Service)

// WithCost sets the bcrypt cost used for new passwords
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// New creates an empty directory
func New(p db.Persister, ledger Opener, opts ...Option) *Service {
	s := &Service{
		persister: p,
		ledger:    ledger,
		cost:      bcrypt.DefaultCost,
		byID:      make(map[string]domain.User),
		byEmail:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates and stores a new user, then opens their ledger account
func (s *Service) Register(ctx context.Context, name, email, mobile, password string) (*domain.User, error) {
	return s.create(ctx, name, email, mobile, password, domain.RoleUser)
}

// EnsureAdmin creates the admin account if no user holds that email yet
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	if u, ok := s.lookup(email); ok {
		return &u, nil
	}
	return s.create(ctx, "Admin User", email, "", password, domain.RoleAdmin)
}

func (s *Service) create(ctx context.Context, name, email, mobile, password, role string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(name) < 2 {
		return nil, fmt.Errorf("%w: name must be at least 2 characters", domain.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: please enter a valid email address", domain.ErrValidation)
	}
	if role == domain.RoleUser && !mobilePattern.MatchString(mobile) {
		return nil, fmt.Errorf("%w: mobile number must be 10 digits", domain.ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return nil, fmt.Errorf("%w: email %s is already registered", domain.ErrConflict, email)
	}
	user := domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Mobile:    mobile,
		Password:  string(hash),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.persister.Persist(ctx, &domain.Changes{Users: []domain.User{user}}); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	s.ledger.Open(user.ID)

	log.WithFields(log.Fields{"user_id": user.ID, "email": email, "role": role}).Info("User registered")
	return &user, nil
}

// Login checks the credentials and returns the user
func (s *Service) Login(_ context.Context, email, password string) (*domain.User, error) {
	u, ok := s.lookup(email)
	if !ok {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	return &u, nil
}

func (s *Service) lookup(email string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.User{}, false
	}
	return s.byID[id], true
}

// Get returns a user by id
func (s *Service) Get(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return &u, nil
}

// Name returns the display name of a user, or empty if unknown
func (s *Service) Name(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id].Name
}

// List returns every user ordered by registration time
func (s *Service) List() []domain.User {
	s.mu.RLock()
	users := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u)
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

// Restore loads users from storage and opens their ledger accounts
func (s *Service) Restore(users []domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.byID[u.ID] = u
		s.byEmail[strings.ToLower(u.Email)] = u.ID
		s.ledger.Open(u.ID)
	}
}
