package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
	"github.com/quickbills/billpay-api/internal/pkg/reseller"
)

// ResellerClient is the subset of reseller.Client used for fulfillment.
type ResellerClient interface {
	TopUp(ctx context.Context, req reseller.AirtimeRequest) (*reseller.Result, error)
	BuyData(ctx context.Context, req reseller.DataRequest) (*reseller.Result, error)
	PayBill(ctx context.Context, req reseller.BillPaymentRequest) (*reseller.Result, error)
	SubscribeCable(ctx context.Context, req reseller.CableRequest) (*reseller.Result, error)
}

// ResellerAdapter fulfils purchases through the VTU reseller.
type ResellerAdapter struct {
	client  ResellerClient
	timeout time.Duration
}

// NewResellerAdapter bounds every call by timeout on top of the client's own limit.
func NewResellerAdapter(client ResellerClient, timeout time.Duration) *ResellerAdapter {
	return &ResellerAdapter{client: client, timeout: timeout}
}

func (a *ResellerAdapter) PurchaseAirtime(ctx context.Context, req AirtimeRequest) Outcome {
	return a.call(ctx, "airtime", req.Amount, func(ctx context.Context) (*reseller.Result, error) {
		return a.client.TopUp(ctx, reseller.AirtimeRequest{
			Network:      strings.ToUpper(req.Provider),
			Amount:       reseller.Amount(req.Amount),
			MobileNumber: req.Phone,
		})
	})
}

func (a *ResellerAdapter) PurchaseData(ctx context.Context, req DataRequest) Outcome {
	return a.call(ctx, "data", req.Amount, func(ctx context.Context) (*reseller.Result, error) {
		return a.client.BuyData(ctx, reseller.DataRequest{
			Network:      strings.ToUpper(req.Provider),
			MobileNumber: req.Phone,
			Plan:         req.Plan,
		})
	})
}

func (a *ResellerAdapter) PurchaseElectricity(ctx context.Context, req ElectricityRequest) Outcome {
	meterType := req.MeterType
	if meterType == "" {
		meterType = "prepaid"
	}
	return a.call(ctx, "electricity", req.Amount, func(ctx context.Context) (*reseller.Result, error) {
		return a.client.PayBill(ctx, reseller.BillPaymentRequest{
			DiscoName:   req.Provider,
			Amount:      reseller.Amount(req.Amount),
			MeterNumber: req.MeterNumber,
			MeterType:   strings.ToLower(meterType),
		})
	})
}

func (a *ResellerAdapter) PurchaseTV(ctx context.Context, req TVRequest) Outcome {
	return a.call(ctx, "tv", req.Amount, func(ctx context.Context) (*reseller.Result, error) {
		return a.client.SubscribeCable(ctx, reseller.CableRequest{
			CableName:       strings.ToUpper(req.Provider),
			CablePlan:       req.Plan,
			SmartCardNumber: req.SmartCardNumber,
		})
	})
}

func (a *ResellerAdapter) call(ctx context.Context, product string, amount decimal.Decimal, fn func(context.Context) (*reseller.Result, error)) Outcome {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := fn(ctx)
	metrics.FulfillmentLatency.WithLabelValues(product).Observe(time.Since(start).Seconds())

	out := Outcome{}
	if res != nil {
		out.ProviderPayload = res.Body
		out.Message = res.Message
	}

	if err != nil {
		out.Err = fmt.Errorf("%w: %v", ledger.ErrUpstreamFailure, err)
		logger.FromContext(ctx).Warn().Err(err).Str("product", product).Str("amount", amount.StringFixed(2)).Msg("reseller call failed")
		return out
	}
	if !res.Success {
		logger.FromContext(ctx).Info().Str("product", product).Str("amount", amount.StringFixed(2)).Str("provider_message", res.Message).Msg("reseller declined")
		out.Err = fmt.Errorf("%w: provider declined: %s", ledger.ErrUpstreamFailure, res.Message)
		return out
	}

	out.Success = true
	return out
}
