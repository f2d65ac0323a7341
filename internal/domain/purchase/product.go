package purchase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/fulfillment"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
)

// Ordering decides when the wallet is debited relative to the provider call.
type Ordering int

const (
	// DebitFirst reserves the balance before the call and rolls it back on failure.
	DebitFirst Ordering = iota
	// CallFirst debits only after the provider confirms delivery.
	CallFirst
)

func (o Ordering) String() string {
	if o == CallFirst {
		return "call_first"
	}
	return "debit_first"
}

type product interface {
	productType() transaction.ProductType
	ordering() Ordering
	draft(userID uuid.UUID) transaction.Draft
	fulfil(ctx context.Context, a fulfillment.Adapter) fulfillment.Outcome
}

type airtime struct{ req AirtimeRequest }

func (p airtime) productType() transaction.ProductType { return transaction.ProductAirtime }
func (p airtime) ordering() Ordering                  { return DebitFirst }

func (p airtime) draft(userID uuid.UUID) transaction.Draft {
	return transaction.Draft{
		UserID:      userID,
		ProductType: transaction.ProductAirtime,
		Direction:   transaction.DirectionDebit,
		Amount:      p.req.Amount,
		Total:       p.req.Amount,
		Provider:    p.req.Provider,
		Phone:       p.req.Phone,
	}
}

func (p airtime) fulfil(ctx context.Context, a fulfillment.Adapter) fulfillment.Outcome {
	return a.PurchaseAirtime(ctx, fulfillment.AirtimeRequest{
		Phone:    p.req.Phone,
		Provider: p.req.Provider,
		Amount:   p.req.Amount,
	})
}

type data struct{ req DataRequest }

func (p data) productType() transaction.ProductType { return transaction.ProductData }
func (p data) ordering() Ordering                  { return DebitFirst }

func (p data) draft(userID uuid.UUID) transaction.Draft {
	return transaction.Draft{
		UserID:      userID,
		ProductType: transaction.ProductData,
		Direction:   transaction.DirectionDebit,
		Amount:      p.req.Amount,
		Total:       p.req.Amount,
		Provider:    p.req.Provider,
		Phone:       p.req.Phone,
		Plan:        p.req.Plan,
	}
}

func (p data) fulfil(ctx context.Context, a fulfillment.Adapter) fulfillment.Outcome {
	return a.PurchaseData(ctx, fulfillment.DataRequest{
		Phone:    p.req.Phone,
		Provider: p.req.Provider,
		Plan:     p.req.Plan,
		Amount:   p.req.Amount,
	})
}

type electricity struct {
	req    ElectricityRequest
	charge decimal.Decimal
}

func (p electricity) productType() transaction.ProductType { return transaction.ProductElectricity }
func (p electricity) ordering() Ordering                  { return CallFirst }

func (p electricity) meterType() string {
	if p.req.MeterType == "" {
		return "prepaid"
	}
	return strings.ToLower(p.req.MeterType)
}

func (p electricity) draft(userID uuid.UUID) transaction.Draft {
	return transaction.Draft{
		UserID:      userID,
		ProductType: transaction.ProductElectricity,
		Direction:   transaction.DirectionDebit,
		Amount:      p.req.Amount,
		Total:       p.req.Amount.Add(p.charge),
		Provider:    p.req.Provider,
		MeterNumber: p.req.MeterNumber,
		MeterType:   p.meterType(),
		Metadata:    map[string]any{"service_charge": p.charge.StringFixed(2)},
	}
}

func (p electricity) fulfil(ctx context.Context, a fulfillment.Adapter) fulfillment.Outcome {
	return a.PurchaseElectricity(ctx, fulfillment.ElectricityRequest{
		MeterNumber: p.req.MeterNumber,
		MeterType:   p.meterType(),
		Provider:    p.req.Provider,
		Amount:      p.req.Amount,
	})
}

type tv struct{ req TVRequest }

func (p tv) productType() transaction.ProductType { return transaction.ProductTV }
func (p tv) ordering() Ordering                  { return CallFirst }

func (p tv) draft(userID uuid.UUID) transaction.Draft {
	return transaction.Draft{
		UserID:          userID,
		ProductType:     transaction.ProductTV,
		Direction:       transaction.DirectionDebit,
		Amount:          p.req.Amount,
		Total:           p.req.Amount,
		Provider:        p.req.Provider,
		SmartCardNumber: p.req.SmartCardNumber,
		Plan:            p.req.Plan,
	}
}

func (p tv) fulfil(ctx context.Context, a fulfillment.Adapter) fulfillment.Outcome {
	return a.PurchaseTV(ctx, fulfillment.TVRequest{
		SmartCardNumber: p.req.SmartCardNumber,
		Provider:        p.req.Provider,
		Plan:            p.req.Plan,
		Amount:          p.req.Amount,
	})
}
