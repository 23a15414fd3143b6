package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, phone_number, password_hash, is_superuser, is_staff, groups, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, phone_number, password_hash, is_superuser, is_staff, groups)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		user.IsSuperuser,
		user.IsStaff,
		domain.GroupsToStrings(user.Groups),
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, phone_number=$2, password_hash=$3, is_superuser=$4, is_staff=$5, groups=$6
        WHERE id=$7`

	cmd, err := r.db.Exec(ctx, query,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		user.IsSuperuser,
		user.IsStaff,
		domain.GroupsToStrings(user.Groups),
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE phone_number=$1`
	return r.fetchSingle(ctx, query, phone)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user   domain.User
		groups []string
	)
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PhoneNumber,
		&user.PasswordHash,
		&user.IsSuperuser,
		&user.IsStaff,
		&groups,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.Groups = domain.GroupsFromStrings(groups)
	return &user, nil
}
