package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/auth"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/store"
)

type userStoreStub struct {
	users map[string]store.User // keyed by email
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{users: map[string]store.User{}}
}

func (s *userStoreStub) CreateUser(_ context.Context, arg store.CreateUserParams) (store.User, error) {
	if _, exists := s.users[arg.Email]; exists {
		return store.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	u := store.User{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Roles:        []string{"user"},
	}
	s.users[arg.Email] = u
	return u, nil
}

func (s *userStoreStub) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := s.users[email]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *userStoreStub) GetUserByID(_ context.Context, id pgtype.UUID) (store.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return store.User{}, pgx.ErrNoRows
}

func newService(t *testing.T, q *userStoreStub) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.Config{Queries: q, Secret: "test-secret-test-secret"})
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	q := newUserStoreStub()
	svc := newService(t, q)

	user, err := svc.Register(context.Background(), "Ada", "Ada@Example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)

	result, err := svc.Login(context.Background(), "ada@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	subject, roles, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, subject)
	require.Contains(t, roles, "user")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	q := newUserStoreStub()
	svc := newService(t, q)

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Eve", "ada@example.com", "battery-staple")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	q := newUserStoreStub()
	svc := newService(t, q)

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ada@example.com", "wrong-password")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestParseAccessTokenExpired(t *testing.T) {
	q := newUserStoreStub()
	svc := newService(t, q)

	hash, err := argon2id.CreateHash("correct-horse", argon2id.DefaultParams)
	require.NoError(t, err)
	q.users["ada@example.com"] = store.User{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Email:        "ada@example.com",
		PasswordHash: hash,
		Roles:        []string{"user"},
	}

	issued := time.Now().Add(-time.Hour)
	svc.WithNow(func() time.Time { return issued })
	result, err := svc.Login(context.Background(), "ada@example.com", "correct-horse")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, _, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}
