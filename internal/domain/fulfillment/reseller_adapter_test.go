package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/pkg/reseller"
)

type mockReseller struct {
	mock.Mock
}

func (m *mockReseller) TopUp(ctx context.Context, req reseller.AirtimeRequest) (*reseller.Result, error) {
	args := m.Called(ctx, req)
	return resultArg(args, 0), args.Error(1)
}

func (m *mockReseller) BuyData(ctx context.Context, req reseller.DataRequest) (*reseller.Result, error) {
	args := m.Called(ctx, req)
	return resultArg(args, 0), args.Error(1)
}

func (m *mockReseller) PayBill(ctx context.Context, req reseller.BillPaymentRequest) (*reseller.Result, error) {
	args := m.Called(ctx, req)
	return resultArg(args, 0), args.Error(1)
}

func (m *mockReseller) SubscribeCable(ctx context.Context, req reseller.CableRequest) (*reseller.Result, error) {
	args := m.Called(ctx, req)
	return resultArg(args, 0), args.Error(1)
}

func resultArg(args mock.Arguments, i int) *reseller.Result {
	if r, ok := args.Get(i).(*reseller.Result); ok {
		return r
	}
	return nil
}

func TestElectricityForwardsBaseAmount(t *testing.T) {
	client := new(mockReseller)
	client.On("PayBill", mock.Anything, reseller.BillPaymentRequest{
		DiscoName:   "IKEDC",
		Amount:      json.Number("1000.00"),
		MeterNumber: "45012345678",
		MeterType:   "prepaid",
	}).Return(&reseller.Result{Success: true, Body: json.RawMessage(`{"status":"success","token":"1234"}`)}, nil)

	adapter := NewResellerAdapter(client, time.Second)
	out := adapter.PurchaseElectricity(context.Background(), ElectricityRequest{
		MeterNumber: "45012345678",
		Provider:    "IKEDC",
		Amount:      decimal.NewFromInt(1000),
	})

	assert.True(t, out.Success)
	assert.NoError(t, out.Err)
	assert.JSONEq(t, `{"status":"success","token":"1234"}`, string(out.ProviderPayload))
	client.AssertExpectations(t)
}

func TestDeclinedIsUpstreamFailure(t *testing.T) {
	client := new(mockReseller)
	client.On("TopUp", mock.Anything, mock.AnythingOfType("reseller.AirtimeRequest")).
		Return(&reseller.Result{Success: false, Message: "Invalid number", Body: json.RawMessage(`{"status":"failed"}`)}, nil)

	out := NewResellerAdapter(client, time.Second).PurchaseAirtime(context.Background(), AirtimeRequest{
		Phone: "08031234567", Provider: "mtn", Amount: decimal.NewFromInt(100),
	})

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, ledger.ErrUpstreamFailure)
	assert.Equal(t, "Invalid number", out.Message)
}

func TestTransportErrorIsFailure(t *testing.T) {
	client := new(mockReseller)
	client.On("SubscribeCable", mock.Anything, mock.Anything).Return(nil, errors.New("reseller timeout: deadline exceeded"))

	out := NewResellerAdapter(client, time.Second).PurchaseTV(context.Background(), TVRequest{
		SmartCardNumber: "7012345678", Provider: "dstv", Plan: "compact",
	})

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, ledger.ErrUpstreamFailure)
	assert.Nil(t, out.ProviderPayload)
}

func TestAdapterAppliesDeadline(t *testing.T) {
	client := new(mockReseller)
	client.On("BuyData", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(&reseller.Result{Success: true}, nil)

	out := NewResellerAdapter(client, 5*time.Second).PurchaseData(context.Background(), DataRequest{
		Phone: "08031234567", Provider: "glo", Plan: "1GB",
	})

	assert.True(t, out.Success)
	client.AssertExpectations(t)
}

func TestDataAmountIsNotSentToReseller(t *testing.T) {
	client := new(mockReseller)
	client.On("BuyData", mock.Anything, reseller.DataRequest{
		Network:      "GLO",
		MobileNumber: "08031234567",
		Plan:         "1GB",
	}).Return(&reseller.Result{Success: true}, nil)

	out := NewResellerAdapter(client, time.Second).PurchaseData(context.Background(), DataRequest{
		Phone: "08031234567", Provider: "glo", Plan: "1GB", Amount: decimal.NewFromInt(500),
	})

	assert.True(t, out.Success)
	client.AssertExpectations(t)
}
