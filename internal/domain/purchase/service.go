package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/config"
	"github.com/quickbills/billpay-api/internal/domain/fulfillment"
	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/middleware"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
	"github.com/quickbills/billpay-api/internal/pkg/validator"
)

const referenceAttempts = 3

// Awarder adds reward points inside the DB transaction that completes a purchase.
type Awarder interface {
	Award(ctx context.Context, q database.Querier, userID uuid.UUID, product transaction.ProductType) (int, error)
}

// DirectOrder is a purchase paid for at the gateway instead of from the wallet.
type DirectOrder struct {
	ProductType transaction.ProductType
	Details     json.RawMessage
	PaidAmount  decimal.Decimal
	// FundingID is the claimed wallet_funding transaction that carried the payment.
	FundingID        uuid.UUID
	FundingReference string
}

type Service struct {
	db          *sqlx.DB
	machine     *transaction.Machine
	guard       *wallet.Guard
	users       user.Repository
	adapter     fulfillment.Adapter
	rewards     Awarder
	compensator *Compensator
	tariff      config.Tariff
}

func NewService(db *sqlx.DB, machine *transaction.Machine, guard *wallet.Guard, users user.Repository,
	adapter fulfillment.Adapter, rewards Awarder, compensator *Compensator, tariff config.Tariff) *Service {
	return &Service{
		db:          db,
		machine:     machine,
		guard:       guard,
		users:       users,
		adapter:     adapter,
		rewards:     rewards,
		compensator: compensator,
		tariff:      tariff,
	}
}

func (s *Service) PurchaseAirtime(ctx context.Context, userID uuid.UUID, req AirtimeRequest) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ledger.ValidationError{Fields: errs}
	}
	return s.execute(ctx, userID, airtime{req: req}, nil)
}

func (s *Service) PurchaseData(ctx context.Context, userID uuid.UUID, req DataRequest) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ledger.ValidationError{Fields: errs}
	}
	return s.execute(ctx, userID, data{req: req}, nil)
}

func (s *Service) PurchaseElectricity(ctx context.Context, userID uuid.UUID, req ElectricityRequest) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ledger.ValidationError{Fields: errs}
	}
	return s.execute(ctx, userID, electricity{req: req, charge: s.tariff.ElectricityServiceCharge}, nil)
}

func (s *Service) PurchaseTV(ctx context.Context, userID uuid.UUID, req TVRequest) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ledger.ValidationError{Fields: errs}
	}
	return s.execute(ctx, userID, tv{req: req}, nil)
}

// PurchaseDirect fulfils a product paid for at the gateway. The wallet is never
// debited. Whatever part of the payment is not consumed by a completed purchase,
// including all of it when the details are unusable, is credited to the wallet.
func (s *Service) PurchaseDirect(ctx context.Context, userID uuid.UUID, order DirectOrder) (*Result, error) {
	p, err := s.productFor(order.ProductType, order.Details)
	if err == nil && p.draft(userID).Total.GreaterThan(order.PaidAmount) {
		err = ledger.NewValidationError("amount", "payment does not cover the purchase total")
	}
	if err != nil {
		if refundErr := s.refundDirect(ctx, userID, order); refundErr != nil {
			return nil, errors.Join(err, refundErr)
		}
		return nil, err
	}
	return s.execute(ctx, userID, p, &order)
}

func (s *Service) productFor(pt transaction.ProductType, details json.RawMessage) (product, error) {
	switch pt {
	case transaction.ProductAirtime:
		var req AirtimeRequest
		if err := decodeDetails(details, &req); err != nil {
			return nil, err
		}
		return airtime{req: req}, nil
	case transaction.ProductData:
		var req DataRequest
		if err := decodeDetails(details, &req); err != nil {
			return nil, err
		}
		return data{req: req}, nil
	case transaction.ProductElectricity:
		var req ElectricityRequest
		if err := decodeDetails(details, &req); err != nil {
			return nil, err
		}
		return electricity{req: req, charge: s.tariff.ElectricityServiceCharge}, nil
	case transaction.ProductTV:
		var req TVRequest
		if err := decodeDetails(details, &req); err != nil {
			return nil, err
		}
		return tv{req: req}, nil
	default:
		return nil, fmt.Errorf("%w: %w %q", ledger.ErrValidation, ErrUnknownProduct, pt)
	}
}

func decodeDetails(details json.RawMessage, v any) error {
	if len(details) == 0 {
		return ledger.NewValidationError("serviceDetails", "required")
	}
	if err := json.Unmarshal(details, v); err != nil {
		return ledger.NewValidationError("serviceDetails", "malformed")
	}
	if errs := validator.Validate(v); errs != nil {
		return &ledger.ValidationError{Fields: errs}
	}
	return nil
}

func (s *Service) refundDirect(ctx context.Context, userID uuid.UUID, order DirectOrder) error {
	if order.FundingID == uuid.Nil {
		return nil
	}
	_, err := s.compensator.ReleaseFunding(ctx, &transaction.Transaction{ID: order.FundingID, UserID: userID, Reference: order.FundingReference})
	return err
}

func (s *Service) execute(ctx context.Context, userID uuid.UUID, p product, direct *DirectOrder) (*Result, error) {
	productName := string(p.productType())
	logCtx := logger.FromContext(ctx).With().
		Str("product", productName).
		Str("ordering", p.ordering().String())
	// Auth already tags the request logger with the caller; webhook-driven direct
	// purchases arrive without one.
	if middleware.GetUserID(ctx) != userID {
		logCtx = logCtx.Str("user_id", userID.String())
	}
	log := logCtx.Logger()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := p.draft(userID)
	if direct == nil && u.Balance.LessThan(d.Total) {
		metrics.PurchasesTotal.WithLabelValues(productName, "insufficient_funds").Inc()
		return nil, ledger.ErrInsufficientFunds
	}
	if direct != nil {
		d.OriginalTransactionID = uuid.NullUUID{UUID: direct.FundingID, Valid: direct.FundingID != uuid.Nil}
		if d.Metadata == nil {
			d.Metadata = map[string]any{}
		}
		d.Metadata["payment_type"] = "direct"
		d.Metadata["funding_reference"] = direct.FundingReference
	}

	// A DebitFirst purchase inserts its pending record and takes the debit in one
	// DB transaction. If a concurrent purchase drained the wallet since the check
	// above, both roll back and no record is left.
	debitFirst := direct == nil && p.ordering() == DebitFirst
	txn, err := s.create(ctx, d, debitFirst)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			metrics.PurchasesTotal.WithLabelValues(productName, "insufficient_funds").Inc()
		}
		return nil, err
	}
	log = log.With().Str("reference", txn.Reference).Logger()
	ctx = logger.WithContext(ctx, &log)

	// Ledger writes after this point must survive a client disconnect.
	dbCtx := context.WithoutCancel(ctx)

	out := p.fulfil(ctx, s.adapter)
	if !out.Success {
		metrics.PurchasesTotal.WithLabelValues(productName, "failed").Inc()
		log.Warn().Err(out.Err).Str("provider_message", out.Message).Msg("provider rejected purchase")
		if _, err := s.compensator.Fail(dbCtx, txn, out.Message, out.ProviderPayload); err != nil {
			return nil, fail(txn.Reference, errors.Join(out.Err, err))
		}
		return nil, fail(txn.Reference, out.Err)
	}

	points := 0
	err = database.WithTx(dbCtx, s.db, func(q database.Querier) error {
		if direct == nil && p.ordering() == CallFirst {
			if err := s.guard.Reserve(dbCtx, q, userID, txn.Total); err != nil {
				return err
			}
			if err := s.machine.MarkApplied(dbCtx, q, txn.ID); err != nil {
				return err
			}
		}
		if direct != nil {
			if _, err := settleDirectFunding(dbCtx, q, s.machine, s.guard, txn, txn.Total); err != nil {
				return err
			}
		}
		if _, err := s.machine.Finalize(dbCtx, q, txn.ID, transaction.Outcome{
			Status:          transaction.StatusCompleted,
			Message:         out.Message,
			ProviderPayload: out.ProviderPayload,
		}); err != nil {
			return err
		}
		awarded, err := s.rewards.Award(dbCtx, q, userID, p.productType())
		points = awarded
		return err
	})
	if err != nil {
		// The provider delivered but the ledger could not record it.
		metrics.PurchasesTotal.WithLabelValues(productName, "under_review").Inc()
		metrics.InconsistenciesTotal.WithLabelValues("purchase").Inc()
		reason := "provider delivered but completion failed: " + err.Error()
		if flagErr := s.machine.FlagForReview(dbCtx, s.db, txn.ID, reason); flagErr != nil {
			logger.Critical(dbCtx, flagErr).Msg("could not flag transaction for review")
		}
		logger.Critical(dbCtx, err).
			Str("total", txn.Total.String()).
			Bool("balance_applied", txn.BalanceApplied).
			Msg("purchase delivered but not settled")
		return nil, fail(txn.Reference, fmt.Errorf("%w: %w", ledger.ErrUnderReview, err))
	}

	metrics.PurchasesTotal.WithLabelValues(productName, "completed").Inc()
	log.Info().Str("total", txn.Total.String()).Int("points", points).Msg("purchase completed")

	result := &Result{
		Reference:       txn.Reference,
		Status:          transaction.StatusCompleted,
		ProductType:     txn.ProductType,
		Amount:          txn.Amount,
		Total:           txn.Total,
		PointsEarned:    points,
		Message:         out.Message,
		ProviderPayload: transaction.JSONRawMessage(out.ProviderPayload),
	}
	if fresh, err := s.users.GetByID(dbCtx, userID); err == nil {
		result.Balance = fresh.Balance
	}
	return result, nil
}

// create inserts the pending record, regenerating the reference on the
// unlikely collision. With debit set, the wallet debit commits together with
// the record.
func (s *Service) create(ctx context.Context, d transaction.Draft, debit bool) (*transaction.Transaction, error) {
	d.BalanceApplied = debit

	var lastErr error
	for i := 0; i < referenceAttempts; i++ {
		d.Reference = transaction.NewReference(d.ProductType)

		var txn *transaction.Transaction
		err := database.WithTx(ctx, s.db, func(q database.Querier) error {
			created, err := s.machine.Create(ctx, q, d)
			if err != nil {
				return err
			}
			if debit {
				if err := s.guard.Reserve(ctx, q, d.UserID, created.Total); err != nil {
					return err
				}
			}
			txn = created
			return nil
		})
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, ledger.ErrDuplicateReference) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
