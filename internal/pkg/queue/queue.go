// Package queue moves payment gateway events through RabbitMQ so webhook
// requests return quickly and processing survives an API restart.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	reconnectDelay       = 5 * time.Second
	maxReconnectAttempts = 10
	handlerTimeout       = 30 * time.Second
)

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks an error that redelivery cannot fix. The message is dropped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Config holds broker settings
type Config struct {
	URL      string
	Queue    string
	Workers  int
	Prefetch int
}

type session struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func dial(cfg Config) (*session, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &session{conn: conn, channel: ch}, nil
}

func (s *session) close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// Publisher sends persistent messages to one queue.
type Publisher struct {
	cfg Config
	mu  sync.Mutex
	s   *session
}

func NewPublisher(cfg Config) (*Publisher, error) {
	s, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{cfg: cfg, s: s}, nil
}

// Publish redials once if the channel was closed underneath.
func (p *Publisher) Publish(ctx context.Context, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if p.s == nil || p.s.channel.IsClosed() {
		if p.s != nil {
			p.s.close()
		}
		s, err := dial(p.cfg)
		if err != nil {
			p.s = nil
			return err
		}
		p.s = s
	}

	if err := p.s.channel.PublishWithContext(ctx, "", p.cfg.Queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.cfg.Queue, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.s != nil {
		p.s.close()
		p.s = nil
	}
}

// Consumer feeds a queue to a pool of workers with manual acks.
type Consumer struct {
	cfg     Config
	handler Handler
	wg      sync.WaitGroup
}

func NewConsumer(cfg Config, handler Handler) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = cfg.Workers * 2
	}
	return &Consumer{cfg: cfg, handler: handler}
}

// Run consumes until ctx is cancelled, reconnecting with a growing delay when
// the broker drops the connection.
func (c *Consumer) Run(ctx context.Context) error {
	attempt := 0
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}

		attempt++
		if attempt > maxReconnectAttempts {
			return fmt.Errorf("max reconnection attempts reached: %w", err)
		}
		delay := reconnectDelay * time.Duration(attempt)
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("RabbitMQ consumer disconnected, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	s, err := dial(c.cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := s.channel.Consume(
		c.cfg.Queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Info().Str("queue", c.cfg.Queue).Int("workers", c.cfg.Workers).Msg("starting consumer workers")

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, msgs, i)
	}

	closed := s.conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		log.Info().Msg("stopping consumer workers")
		c.wg.Wait()
		return nil
	case amqpErr := <-closed:
		c.wg.Wait()
		if amqpErr == nil {
			return errors.New("connection closed")
		}
		return amqpErr
	}
}

func (c *Consumer) worker(ctx context.Context, msgs <-chan amqp.Delivery, workerID int) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Debug().Int("worker_id", workerID).Msg("message channel closed")
				return
			}
			c.process(ctx, msg, workerID)
		}
	}
}

// process acks on success, drops permanent failures and requeues the rest.
func (c *Consumer) process(ctx context.Context, msg amqp.Delivery, workerID int) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	err := c.handler(ctx, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case IsPermanent(err):
		log.Error().Err(err).Int("worker_id", workerID).Str("message_id", msg.MessageId).Msg("dropping message")
		_ = msg.Nack(false, false)
	default:
		log.Warn().Err(err).Int("worker_id", workerID).Str("message_id", msg.MessageId).Msg("requeueing message")
		_ = msg.Nack(false, true)
	}
}
