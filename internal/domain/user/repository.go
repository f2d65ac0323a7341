package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickbills/billpay-api/internal/pkg/database"
)

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListFundingHistory(ctx context.Context, userID uuid.UUID, limit int) ([]FundingRecord, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, fullname, email, phone, role, balance, points, last_funded_at, created_at, updated_at`

// Create inserts a user with a zero balance unless one is preset.
func (r *repository) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := r.db.Rebind(`
		INSERT INTO users (id, fullname, email, phone, role, balance, points, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Fullname, strings.ToLower(u.Email), u.Phone, u.Role, u.Balance, u.Points, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("user repository create: %w", err)
	}
	return nil
}

// GetByID returns user by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return Get(ctx, r.db, id)
}

// Get loads a user through any querier, so callers inside a transaction see their own writes.
func Get(ctx context.Context, q database.Querier, id uuid.UUID) (*User, error) {
	var u User
	err := q.GetContext(ctx, &u, q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository get: %w", err)
	}
	return &u, nil
}

// ListFundingHistory returns the newest funding records first.
func (r *repository) ListFundingHistory(ctx context.Context, userID uuid.UUID, limit int) ([]FundingRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.Rebind(`
		SELECT id, user_id, amount, payment_method, reference, status, created_at
		FROM funding_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)

	records := []FundingRecord{}
	if err := r.db.SelectContext(ctx, &records, query, userID, limit); err != nil {
		return nil, fmt.Errorf("user repository funding history: %w", err)
	}
	return records, nil
}
