package funding_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbills/billpay-api/internal/domain/funding"
	"github.com/quickbills/billpay-api/internal/pkg/paystack"
	"github.com/quickbills/billpay-api/internal/pkg/queue"
)

const webhookSecret = "sk_test_webhook"

type fakePublisher struct {
	err      error
	messages []string
}

func (p *fakePublisher) Publish(ctx context.Context, messageID string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, messageID)
	return nil
}

func chargeBody(f *fixture, event, reference string, kobo int64, metadata string) []byte {
	if metadata == "" {
		metadata = fmt.Sprintf(`{"userId":%q}`, f.user.ID)
	}
	return []byte(fmt.Sprintf(
		`{"event":%q,"data":{"reference":%q,"status":"success","amount":%d,"channel":"card","gateway_response":"Declined","metadata":%s,"customer":{"email":"payer@example.com"}}}`,
		event, reference, kobo, metadata))
}

func deliver(h http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, signature)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t, nil)
	h := funding.NewWebhookHandler(webhookSecret, f.reconciler, nil)
	body := chargeBody(f, paystack.EventChargeSuccess, "FND-W0", 50000, "")

	rec := deliver(h, body, paystack.Sign("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = deliver(h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assertMoney(t, 100, f.balance(t))
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM transactions`))
	assert.Zero(t, n)
}

func TestWebhookCreditsOnce(t *testing.T) {
	f := newFixture(t, nil)
	h := funding.NewWebhookHandler(webhookSecret, f.reconciler, nil)
	body := chargeBody(f, paystack.EventChargeSuccess, "FND-W1", 50000, "")

	for i := 0; i < 3; i++ {
		rec := deliver(h, body, paystack.Sign(webhookSecret, body))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assertMoney(t, 600, f.balance(t))
	assert.Equal(t, 1, f.fundingRows(t))
}

func TestWebhookDropsPermanentFailures(t *testing.T) {
	f := newFixture(t, nil)
	h := funding.NewWebhookHandler(webhookSecret, f.reconciler, nil)

	body := chargeBody(f, paystack.EventChargeSuccess, "FND-W2", 50000, `{"source":"app"}`)
	rec := deliver(h, body, paystack.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)

	body = []byte(`not json`)
	rec = deliver(h, body, paystack.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)

	assertMoney(t, 100, f.balance(t))
}

func TestWebhookChargeFailed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := funding.NewWebhookHandler(webhookSecret, f.reconciler, nil)

	_, err := f.reconciler.ApplyFunding(ctx, f.event("FND-W3", 10))
	require.NoError(t, err)

	body := chargeBody(f, paystack.EventChargeFailed, "FND-UNSEEN", 1000, "")
	rec := deliver(h, body, paystack.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)

	body = chargeBody(f, paystack.EventChargeFailed, "FND-W3", 1000, "")
	rec = deliver(h, body, paystack.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)

	txn, err := f.machine.GetByReference(ctx, f.db, "FND-W3")
	require.NoError(t, err)
	assert.Equal(t, "completed", string(txn.Status))
	assertMoney(t, 110, f.balance(t))
}

func TestWebhookPublishesWhenQueued(t *testing.T) {
	f := newFixture(t, nil)
	pub := &fakePublisher{}
	h := funding.NewWebhookHandler(webhookSecret, f.reconciler, pub)
	body := chargeBody(f, paystack.EventChargeSuccess, "FND-Q1", 20000, "")

	rec := deliver(h, body, paystack.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"charge.success:FND-Q1"}, pub.messages)
	assertMoney(t, 100, f.balance(t))

	require.NoError(t, funding.Handle(f.reconciler)(context.Background(), body))
	assertMoney(t, 300, f.balance(t))
}

func TestWebhookFallsBackInlineWhenQueueDown(t *testing.T) {
	f := newFixture(t, nil)
	h := funding.NewWebhookHandler(webhookSecret, f.reconciler, &fakePublisher{err: errors.New("connection refused")})
	body := chargeBody(f, paystack.EventChargeSuccess, "FND-Q2", 20000, "")

	rec := deliver(h, body, paystack.Sign(webhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assertMoney(t, 300, f.balance(t))
}

func TestQueueHandlerClassifiesErrors(t *testing.T) {
	f := newFixture(t, nil)
	handle := funding.Handle(f.reconciler)
	ctx := context.Background()

	err := handle(ctx, []byte(`{`))
	assert.True(t, queue.IsPermanent(err))

	err = handle(ctx, chargeBody(f, paystack.EventChargeSuccess, "FND-Q3", 20000, `{"userId":"not-a-uuid"}`))
	assert.True(t, queue.IsPermanent(err))

	assert.NoError(t, handle(ctx, []byte(`{"event":"subscription.create","data":{}}`)))
}
