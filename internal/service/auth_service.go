package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 150
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// RegisterInput is the self-service sign-up form.
type RegisterInput struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

// Session is an authenticated user with a fresh access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// SeedUser describes an account the seed command keeps in place.
type SeedUser struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string
	Groups      []domain.Group
	Superuser   bool
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	BcryptCost int
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   deps.Tokens,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// Register creates an account in the Normal Users group and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	username := strings.TrimSpace(input.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, apperrors.NewValidationError("username must be 3-150 characters", map[string]any{"field": "username"})
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(input.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}

	if err := s.ensureAvailable(ctx, username, phone); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: hash,
		Groups:       domain.WithDefaultGroups(nil),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateError(repository.ConstraintName(err))
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.session(user)
}

// Login verifies credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.session(user)
}

// EnsureUser creates the account or brings an existing one in line with seed.
func (s *AuthService) EnsureUser(ctx context.Context, seed SeedUser) (*domain.User, bool, error) {
	phone, err := NormalizePhone(seed.PhoneNumber)
	if err != nil {
		return nil, false, err
	}
	hash, err := auth.HashPassword(seed.Password, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	groups := domain.WithDefaultGroups(seed.Groups)

	existing, err := s.users.GetByUsername(ctx, seed.Username)
	switch {
	case err == nil:
		existing.Email = seed.Email
		existing.PhoneNumber = phone
		existing.PasswordHash = hash
		existing.Groups = groups
		existing.IsSuperuser = seed.Superuser
		existing.IsStaff = seed.Superuser
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, false, apperrors.MapError(err)
		}
		return existing, false, nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, false, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     seed.Username,
		Email:        seed.Email,
		PhoneNumber:  phone,
		PasswordHash: hash,
		IsSuperuser:  seed.Superuser,
		IsStaff:      seed.Superuser,
		Groups:       groups,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, false, duplicateError(repository.ConstraintName(err))
		}
		return nil, false, apperrors.MapError(err)
	}
	return user, true, nil
}

// DefaultSeedUsers is the demo roster: one account per role.
func DefaultSeedUsers(password string) []SeedUser {
	return []SeedUser{
		{Username: "user1", Email: "user1@example.com", PhoneNumber: "+15550000001", Password: password},
		{Username: "tech1", Email: "tech1@example.com", PhoneNumber: "+15550000002", Password: password, Groups: []domain.Group{domain.GroupTechnicalAgents}},
		{Username: "hr1", Email: "hr1@example.com", PhoneNumber: "+15550000003", Password: password, Groups: []domain.Group{domain.GroupHRAgents}},
		{Username: "consultant1", Email: "consultant1@example.com", PhoneNumber: "+15550000004", Password: password, Groups: []domain.Group{domain.GroupConsultants}},
		{Username: "admin1", Email: "admin1@example.com", PhoneNumber: "+15550000005", Password: password, Superuser: true},
	}
}

// NormalizePhone checks the accepted phone shape. Numbers entered with a
// country code that phonenumbers recognizes as valid are stored in E.164;
// anything else that passes the shape check is kept as entered.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !phonePattern.MatchString(raw) {
		return "", apperrors.NewValidationError(
			"Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed.",
			map[string]any{"field": "phone_number"},
		)
	}
	if !strings.HasPrefix(raw, "+") {
		return raw, nil
	}
	parsed, err := phonenumbers.Parse(raw, phonenumbers.UNKNOWN_REGION)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw, nil
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", apperrors.NewValidationError("enter a valid email address", map[string]any{"field": "email"})
	}
	return strings.ToLower(addr.Address), nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, phone string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return duplicateError("users_username_key")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if _, err := s.users.GetByPhone(ctx, phone); err == nil {
		return duplicateError("users_phone_number_key")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	return nil
}

func duplicateError(constraint string) error {
	if strings.Contains(constraint, "phone") {
		return apperrors.NewValidationError("a user with that phone number already exists", map[string]any{"field": "phone_number"})
	}
	return apperrors.NewValidationError("a user with that username already exists", map[string]any{"field": "username"})
}

func (s *AuthService) session(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}
