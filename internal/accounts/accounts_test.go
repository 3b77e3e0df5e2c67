package accounts

import (
	"context"
	"testing"

	"lucky_lottery/internal/db"
	"lucky_lottery/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockOpener struct{ mock.Mock }

func (m *mockOpener) Open(userID string) { m.Called(userID) }

func newTestService(opener Opener) *Service {
	return New(db.Nop{}, opener, WithCost(bcrypt.MinCost))
}

func TestRegister_OpensLedgerAccount(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", mock.AnythingOfType("string")).Once()
	s := newTestService(opener)

	u, err := s.Register(context.Background(), "Demo User", "Demo@Example.com", "9876543210", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "demo@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.Password)
	opener.AssertCalled(t, "Open", u.ID)
}

func TestRegister_Validation(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", mock.Anything)
	s := newTestService(opener)
	ctx := context.Background()

	tests := []struct {
		name, user, email, mobile, password string
		wantErr                             error
	}{
		{"short name", "D", "d@example.com", "9876543210", "secret1", domain.ErrValidation},
		{"bad email", "Demo", "nope", "9876543210", "secret1", domain.ErrValidation},
		{"bad mobile", "Demo", "d@example.com", "12345", "secret1", domain.ErrValidation},
		{"short password", "Demo", "d@example.com", "9876543210", "abc", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.user, tt.email, tt.mobile, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, s.List())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", mock.Anything)
	s := newTestService(opener)
	ctx := context.Background()

	_, err := s.Register(ctx, "Demo", "demo@example.com", "9876543210", "secret1")
	require.NoError(t, err)
	_, err = s.Register(ctx, "Other", "DEMO@example.com", "9876543211", "secret2")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogin(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", mock.Anything)
	s := newTestService(opener)
	ctx := context.Background()
	u, err := s.Register(ctx, "Demo", "demo@example.com", "9876543210", "secret1")
	require.NoError(t, err)

	got, err := s.Login(ctx, "demo@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Login(ctx, "demo@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = s.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", mock.Anything)
	s := newTestService(opener)
	ctx := context.Background()

	a, err := s.EnsureAdmin(ctx, "admin@luckylottery.com", "adminpass")
	require.NoError(t, err)
	b, err := s.EnsureAdmin(ctx, "admin@luckylottery.com", "adminpass")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.True(t, a.IsAdmin())
	assert.Len(t, s.List(), 1)
}

func TestRestore(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", "u1").Once()
	s := newTestService(opener)

	s.Restore([]domain.User{{ID: "u1", Name: "Demo", Email: "Demo@Example.com"}})

	u, err := s.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, "Demo", u.Name)
	assert.Equal(t, "Demo", s.Name("u1"))
	_, ok := s.lookup("demo@example.com")
	assert.True(t, ok)
	opener.AssertExpectations(t)
}
