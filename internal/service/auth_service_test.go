package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/mocks"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, *mocks.MockUserRepository, *auth.TokenManager) {
	t.Helper()
	users := mocks.NewMockUserRepository(gomock.NewController(t))
	tokens := auth.NewTokenManager("test-secret", 5)
	return NewAuthService(AuthDependencies{UserRepo: users, Tokens: tokens, BcryptCost: bcrypt.MinCost}), users, tokens
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username:    "newbie",
		Email:       "newbie@example.com",
		PhoneNumber: "+15551234567",
		Password:    "password123",
	}
}

func TestAuthService_RegisterLandsInNormalUsers(t *testing.T) {
	svc, users, tokens := newAuthService(t)
	ctx := context.Background()

	users.EXPECT().GetByUsername(ctx, "newbie").Return(nil, pgx.ErrNoRows)
	users.EXPECT().GetByPhone(ctx, "+15551234567").Return(nil, pgx.ErrNoRows)
	users.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		u.ID = "u-9"
		return nil
	})

	session, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	assert.Equal(t, []domain.Group{domain.GroupNormalUsers}, session.User.Groups)
	assert.Equal(t, domain.RoleUser, session.User.Role())
	assert.NoError(t, auth.ComparePassword(session.User.PasswordHash, "password123"))

	claims, err := tokens.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims.UserID)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"short username", func(in *RegisterInput) { in.Username = "ab" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"phone with letters", func(in *RegisterInput) { in.PhoneNumber = "+1555abc4567" }, "phone_number"},
		{"phone too short", func(in *RegisterInput) { in.PhoneNumber = "12345" }, "phone_number"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newAuthService(t)
			input := validRegistration()
			tt.mutate(&input)

			_, err := svc.Register(context.Background(), input)
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
			assert.Equal(t, tt.field, domainErr.Details["field"])
		})
	}
}

func TestAuthService_RegisterDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("username taken", func(t *testing.T) {
		svc, users, _ := newAuthService(t)
		users.EXPECT().GetByUsername(ctx, "newbie").Return(&domain.User{ID: "u-1"}, nil)

		_, err := svc.Register(ctx, validRegistration())
		assert.Equal(t, "username", apperrors.ToDomainError(err).Details["field"])
	})

	t.Run("phone lost to concurrent insert", func(t *testing.T) {
		svc, users, _ := newAuthService(t)
		users.EXPECT().GetByUsername(ctx, "newbie").Return(nil, pgx.ErrNoRows)
		users.EXPECT().GetByPhone(ctx, "+15551234567").Return(nil, pgx.ErrNoRows)
		users.EXPECT().Create(ctx, gomock.Any()).Return(&pgconn.PgError{Code: "23505", ConstraintName: "users_phone_number_key"})

		_, err := svc.Register(ctx, validRegistration())
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
		assert.Equal(t, "phone_number", domainErr.Details["field"])
	})
}

func TestAuthService_Login(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()
	hash, err := auth.HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	stored := &domain.User{ID: "u-1", Username: "tech1", PasswordHash: hash, Groups: []domain.Group{domain.GroupTechnicalAgents}}

	users.EXPECT().GetByUsername(ctx, "tech1").Return(stored, nil).Times(2)
	users.EXPECT().GetByUsername(ctx, "ghost").Return(nil, pgx.ErrNoRows)

	session, err := svc.Login(ctx, "tech1", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, session.User.Role())

	_, err = svc.Login(ctx, "tech1", "wrong-password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "ghost", "password123")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestAuthService_EnsureUserIsIdempotent(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()
	seed := DefaultSeedUsers("password123")[1]

	users.EXPECT().GetByUsername(ctx, "tech1").Return(nil, pgx.ErrNoRows)
	users.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	created, isNew, err := svc.EnsureUser(ctx, seed)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, created.IsAgent())
	assert.True(t, created.HasGroup(domain.GroupNormalUsers))

	users.EXPECT().GetByUsername(ctx, "tech1").Return(created, nil)
	users.EXPECT().Update(ctx, created).Return(nil)

	again, isNew, err := svc.EnsureUser(ctx, seed)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.Groups, again.Groups)
}

func TestDefaultSeedUsersCoverEveryRole(t *testing.T) {
	roles := map[string]bool{}
	for _, seed := range DefaultSeedUsers("pw") {
		u := &domain.User{IsSuperuser: seed.Superuser, Groups: domain.WithDefaultGroups(seed.Groups)}
		roles[string(u.Role())] = true
	}
	assert.Equal(t, map[string]bool{"user": true, "agent": true, "admin": true}, roles)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"format example", "+999999999", "+999999999"},
		{"valid international", "+447911123456", "+447911123456"},
		{"surrounding space", "  +447911123456 ", "+447911123456"},
		{"no country code kept as entered", "441234567890", "441234567890"},
		{"short national kept as entered", "123456789", "123456789"},
		{"us without plus", "5551234567", "5551234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizePhone("+1 555 123 4567")
	assertCode(t, err, apperrors.CodeValidation)
}
