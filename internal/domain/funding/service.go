package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/paystack"
	"github.com/quickbills/billpay-api/internal/pkg/validator"
)

// Gateway is the part of the Paystack client the service needs.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

type Service struct {
	db          *sqlx.DB
	machine     *transaction.Machine
	users       user.Repository
	gateway     Gateway
	reconciler  *Reconciler
	callbackURL string
}

func NewService(db *sqlx.DB, machine *transaction.Machine, users user.Repository, gateway Gateway, reconciler *Reconciler, frontendURL string) *Service {
	callback := ""
	if frontendURL != "" {
		callback = strings.TrimRight(frontendURL, "/") + "/dashboard"
	}
	return &Service{
		db:          db,
		machine:     machine,
		users:       users,
		gateway:     gateway,
		reconciler:  reconciler,
		callbackURL: callback,
	}
}

// Initialize records a pending funding transaction and opens a gateway checkout for it.
func (s *Service) Initialize(ctx context.Context, userID uuid.UUID, req InitializeRequest) (*InitializeResponse, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, &ledger.ValidationError{Fields: errs}
	}
	if req.PaymentType == paymentTypeDirect && len(req.ServiceDetails) == 0 {
		return nil, ledger.NewValidationError("serviceDetails", "This field is required")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = "wallet"
	}

	txn, err := s.machine.Create(ctx, s.db, transaction.Draft{
		UserID:      userID,
		ProductType: transaction.ProductWalletFunding,
		Direction:   transaction.DirectionCredit,
		Amount:      req.Amount,
		Provider:    "paystack",
		Metadata: map[string]any{
			"payment_type": paymentType,
			"product_type": req.ProductType,
		},
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"userId":      userID.String(),
		"paymentType": paymentType,
	}
	if req.PaymentType == paymentTypeDirect {
		metadata["productType"] = req.ProductType
		metadata["serviceDetails"] = req.ServiceDetails
	}

	checkout, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       u.Email,
		Amount:      req.Amount,
		Reference:   txn.Reference,
		CallbackURL: s.callbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		if _, ferr := s.machine.Finalize(context.WithoutCancel(ctx), s.db, txn.ID, transaction.Outcome{
			Status:  transaction.StatusFailed,
			Message: "payment initialization failed",
		}); ferr != nil {
			logger.FromContext(ctx).Error().Err(ferr).Str("reference", txn.Reference).Msg("could not fail funding record")
		}
		return nil, ledger.WithReference(txn.Reference, fmt.Errorf("%w: %w", ledger.ErrUpstreamFailure, err))
	}

	return &InitializeResponse{
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Reference:        txn.Reference,
	}, nil
}

// Verify asks the gateway for the payment's state and applies it through the
// same path as the webhook. Another user's reference is reported as not found.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, reference string) (*VerifyResponse, error) {
	txn, err := s.machine.GetByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID || txn.ProductType != transaction.ProductWalletFunding {
		return nil, transaction.ErrTransactionNotFound
	}

	out := &VerifyResponse{Reference: reference, Status: txn.Status, Amount: txn.Amount}
	if txn.Status == transaction.StatusPending {
		remote, err := s.gateway.Verify(ctx, reference)
		if err != nil {
			return nil, ledger.WithReference(reference, fmt.Errorf("%w: %w", ledger.ErrUpstreamFailure, err))
		}

		switch {
		case remote.Succeeded():
			res, err := s.reconciler.ApplyFunding(ctx, Event{
				Reference: reference,
				Amount:    remote.Naira(),
				Channel:   remote.Channel,
				Email:     remote.Customer.Email,
				Metadata:  remote.Metadata,
				UserID:    userID,
				Source:    "verify",
			})
			switch {
			case errors.Is(err, ErrInProgress):
				// A webhook for the same payment holds the lock; report what the ledger shows.
			case err != nil:
				return nil, ledger.WithReference(reference, err)
			default:
				out.Applied = res.Applied
				out.Purchase = res.Purchase
			}
		case remote.Status == "failed":
			if err := s.reconciler.MarkFailed(ctx, reference, remote.GatewayResponse); err != nil {
				return nil, ledger.WithReference(reference, err)
			}
		}

		if txn, err = s.machine.GetByReference(ctx, s.db, reference); err != nil {
			return nil, err
		}
		out.Status, out.Amount = txn.Status, txn.Amount
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Balance = u.Balance
	return out, nil
}
