package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/pkg/database"
)

// Repository defines admin data access
type Repository interface {
	// Audit logs
	CreateAuditLog(ctx context.Context, q database.Querier, log *AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLog, int, error)

	// Analytics
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

// AuditFilter for filtering audit logs
type AuditFilter struct {
	Action     string
	EntityType string
	Limit      int
	Offset     int
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates admin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// CreateAuditLog runs on the caller's querier so the entry commits with the action it records.
func (r *repository) CreateAuditLog(ctx context.Context, q database.Querier, log *AuditLog) error {
	query := q.Rebind(`
		INSERT INTO audit_logs (id, admin_id, action, entity_type, entity_id, old_value, new_value, reason, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		log.ID,
		log.AdminID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.OldValue,
		log.NewValue,
		log.Reason,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (r *repository) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLog, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filter.Action != "" {
		where += ` AND action = ?`
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		where += ` AND entity_type = ?`
		args = append(args, filter.EntityType)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM audit_logs`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.Rebind(`SELECT id, admin_id, action, entity_type, entity_id, old_value, new_value, reason,
		ip_address, user_agent, created_at FROM audit_logs` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)

	logs := []AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, total, nil
}

// Analytics

func (r *repository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&stats.Users.Total, `SELECT COUNT(*) FROM users`, nil},
		{&stats.Users.NewToday, `SELECT COUNT(*) FROM users WHERE created_at >= ?`, []any{today}},
		{&stats.Wallets.TotalPoints, `SELECT COALESCE(SUM(points), 0) FROM users`, nil},
		{&stats.Transactions.Pending, `SELECT COUNT(*) FROM transactions WHERE status = 'pending'`, nil},
		{&stats.Transactions.Completed, `SELECT COUNT(*) FROM transactions WHERE status = 'completed'`, nil},
		{&stats.Transactions.Failed, `SELECT COUNT(*) FROM transactions WHERE status = 'failed'`, nil},
		{&stats.Transactions.UnderReview, `SELECT COUNT(*) FROM transactions WHERE status = 'pending' AND review_reason IS NOT NULL`, nil},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dst, r.db.Rebind(c.query), c.args...); err != nil {
			return nil, fmt.Errorf("dashboard stats: %w", err)
		}
	}

	sums := []struct {
		dst   *decimal.Decimal
		query string
	}{
		{&stats.Wallets.TotalBalance, `SELECT COALESCE(ROUND(SUM(balance), 2), 0) FROM users`},
		{&stats.Volume.Purchases, `SELECT COALESCE(ROUND(SUM(total), 2), 0) FROM transactions
			WHERE status = 'completed' AND product_type IN ('airtime', 'data', 'electricity', 'tv')`},
		{&stats.Volume.Funding, `SELECT COALESCE(ROUND(SUM(amount), 2), 0) FROM transactions
			WHERE status = 'completed' AND product_type = 'wallet_funding'`},
		{&stats.Volume.Refunds, `SELECT COALESCE(ROUND(SUM(amount), 2), 0) FROM transactions WHERE product_type = 'refund'`},
	}
	for _, s := range sums {
		if err := r.db.GetContext(ctx, s.dst, s.query); err != nil {
			return nil, fmt.Errorf("dashboard stats: %w", err)
		}
	}

	return stats, nil
}
