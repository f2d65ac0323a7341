// Package fulfillment turns product purchases into reseller calls and normalizes
// every possible reply into a single Outcome.
package fulfillment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Outcome is the normalized result of one provider call.
// Transport failures, timeouts and HTTP errors are all Success=false.
type Outcome struct {
	Success         bool
	ProviderPayload json.RawMessage
	Message         string
	Err             error
}

type AirtimeRequest struct {
	Phone    string
	Provider string
	Amount   decimal.Decimal
}

// DataRequest carries the plan price the user is charged. The reseller prices
// the plan itself, so Amount is not sent on the wire.
type DataRequest struct {
	Phone    string
	Provider string
	Plan     string
	Amount   decimal.Decimal
}

type ElectricityRequest struct {
	MeterNumber string
	MeterType   string
	Provider    string
	// Amount is the base amount forwarded to the provider, without the service charge.
	Amount decimal.Decimal
}

// TVRequest mirrors DataRequest: Amount is the bouquet price charged to the
// user and is not forwarded.
type TVRequest struct {
	SmartCardNumber string
	Provider        string
	Plan            string
	Amount          decimal.Decimal
}

// Adapter performs exactly one provider call per invocation; it never retries.
type Adapter interface {
	PurchaseAirtime(ctx context.Context, req AirtimeRequest) Outcome
	PurchaseData(ctx context.Context, req DataRequest) Outcome
	PurchaseElectricity(ctx context.Context, req ElectricityRequest) Outcome
	PurchaseTV(ctx context.Context, req TVRequest) Outcome
}
