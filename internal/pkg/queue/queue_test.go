package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestPermanentWrapping(t *testing.T) {
	base := errors.New("user not found")
	err := fmt.Errorf("handle FND-1: %w", Permanent(base))

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}

func TestProcessAcknowledgement(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantAck     int
		wantNack    int
		wantRequeue bool
	}{
		{name: "success acks", wantAck: 1},
		{name: "permanent drops", err: Permanent(errors.New("bad metadata")), wantNack: 1},
		{name: "transient requeues", err: errors.New("db down"), wantNack: 1, wantRequeue: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &ackRecorder{}
			var got []byte
			c := NewConsumer(Config{Queue: "test"}, func(ctx context.Context, body []byte) error {
				got = body
				return tc.err
			})

			c.process(context.Background(), amqp.Delivery{Acknowledger: rec, Body: []byte(`{"event":"x"}`)}, 0)

			assert.Equal(t, `{"event":"x"}`, string(got))
			assert.Equal(t, tc.wantAck, rec.acked)
			assert.Equal(t, tc.wantNack, rec.nacked)
			assert.Equal(t, tc.wantRequeue, rec.requeue)
		})
	}
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(Config{Queue: "q", Workers: 3}, nil)
	assert.Equal(t, 3, c.cfg.Workers)
	assert.Equal(t, 6, c.cfg.Prefetch)
}
