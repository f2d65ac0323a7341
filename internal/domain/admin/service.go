package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/reseller"
	"github.com/quickbills/billpay-api/internal/pkg/validator"
)

// ResellerAccount reads the reseller wallet.
type ResellerAccount interface {
	Account(ctx context.Context) (*reseller.Account, error)
}

// Service handles admin business logic
type Service struct {
	db       *sqlx.DB
	repo     Repository
	machine  *transaction.Machine
	guard    *wallet.Guard
	reseller ResellerAccount
}

// NewService creates admin service
func NewService(db *sqlx.DB, repo Repository, machine *transaction.Machine, guard *wallet.Guard, reseller ResellerAccount) *Service {
	return &Service{db: db, repo: repo, machine: machine, guard: guard, reseller: reseller}
}

// Refund credits the total of a completed purchase back to its owner as a new
// refund transaction. The refund record, the credit and the audit entry commit together;
// the derived reference makes a second refund of the same purchase collide.
func (s *Service) Refund(ctx context.Context, adminID uuid.UUID, reference string, req RefundRequest, meta RequestMeta) (*RefundResponse, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ledger.ValidationError{Fields: errs}
	}

	var out *RefundResponse
	err := database.WithTx(ctx, s.db, func(q database.Querier) error {
		orig, err := s.machine.GetByReference(ctx, q, reference)
		if err != nil {
			return err
		}
		if orig.Status != transaction.StatusCompleted || orig.Direction != transaction.DirectionDebit || !orig.ProductType.IsPurchase() {
			return transaction.ErrNotRefundable
		}

		refund, err := s.machine.Create(ctx, q, transaction.Draft{
			UserID:                orig.UserID,
			ProductType:           transaction.ProductRefund,
			Direction:             transaction.DirectionCredit,
			Amount:                orig.Total,
			Total:                 orig.Total,
			Provider:              orig.Provider,
			Reference:             transaction.RefundReference(orig.Reference),
			Message:               req.Reason,
			Metadata:              map[string]any{"refunded_by": adminID.String()},
			OriginalTransactionID: uuid.NullUUID{UUID: orig.ID, Valid: true},
			Status:                transaction.StatusCompleted,
			BalanceApplied:        true,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicateReference) {
				return transaction.ErrAlreadyRefunded
			}
			return err
		}

		if err := s.guard.Apply(ctx, q, orig.UserID, orig.Total, transaction.DirectionCredit, nil); err != nil {
			return err
		}

		u, err := user.Get(ctx, q, orig.UserID)
		if err != nil {
			return err
		}

		oldJSON, _ := json.Marshal(map[string]any{"reference": orig.Reference, "status": orig.Status})
		newJSON, _ := json.Marshal(map[string]any{"refund_reference": refund.Reference, "amount": refund.Amount})
		entry := &AuditLog{
			ID:         uuid.New(),
			AdminID:    uuid.NullUUID{UUID: adminID, Valid: adminID != uuid.Nil},
			Action:     ActionRefund,
			EntityType: "transaction",
			EntityID:   uuid.NullUUID{UUID: orig.ID, Valid: true},
			OldValue:   oldJSON,
			NewValue:   newJSON,
			Reason:     sql.NullString{String: req.Reason, Valid: req.Reason != ""},
			IPAddress:  sql.NullString{String: meta.IPAddress, Valid: meta.IPAddress != ""},
			UserAgent:  sql.NullString{String: meta.UserAgent, Valid: meta.UserAgent != ""},
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.repo.CreateAuditLog(ctx, q, entry); err != nil {
			return err
		}

		out = &RefundResponse{
			Refund:     transaction.ResponseFromEntity(refund),
			Original:   orig.Reference,
			NewBalance: u.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("admin_id", adminID.String()).
		Str("reference", reference).
		Str("refund_reference", out.Refund.Reference).
		Str("amount", out.Refund.Amount.String()).
		Msg("purchase refunded")
	return out, nil
}

// Transaction returns any user's transaction with ledger internals.
func (s *Service) Transaction(ctx context.Context, reference string) (*TransactionDetail, error) {
	t, err := s.machine.GetByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	detail := detailFromEntity(t)
	return &detail, nil
}

// ResellerBalance reports the float left with the reseller.
func (s *Service) ResellerBalance(ctx context.Context) (*ResellerBalanceResponse, error) {
	acc, err := s.reseller.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reseller account: %w", ledger.ErrUpstreamFailure, err)
	}
	return &ResellerBalanceResponse{Username: acc.Username, WalletBalance: acc.WalletBalance}, nil
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx)
}

func (s *Service) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLog, int, error) {
	return s.repo.ListAuditLogs(ctx, filter)
}
