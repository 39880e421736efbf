package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func() (channel, func() error, error)

const (
	// DialTimeout bounds connecting and the AMQP handshake.
	DialTimeout = 2 * time.Second
	// RedialBackoff is how long publishes fail fast after a failed dial.
	RedialBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned while the publisher backs off after a failed dial.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// AMQPPublisher publishes persistent JSON messages to a durable queue. The
// connection is opened lazily and reopened after a failed publish. After a
// failed dial no new dial is attempted until RedialBackoff has passed.
type AMQPPublisher struct {
	dial   dialFunc
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	ch         channel
	closeConn  func() error
	nextDialAt time.Time
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, logger *slog.Logger) *AMQPPublisher {
	return newAMQPPublisher(func() (channel, func() error, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(DialTimeout)})
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq: open channel: %w", err)
		}
		return ch, conn.Close, nil
	}, logger)
}

func newAMQPPublisher(dial dialFunc, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{dial: dial, logger: logger, now: time.Now}
}

// PublishScreeningScheduled implements Publisher.
func (p *AMQPPublisher) PublishScreeningScheduled(ctx context.Context, event ScreeningScheduled) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	return p.publish(ctx, ScreeningScheduledQueue, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rabbitmq: publish to %s: %w", queue, err)
	}

	if p.ch == nil {
		if now := p.now(); now.Before(p.nextDialAt) {
			return fmt.Errorf("%w: retry after %s", ErrBrokerUnavailable, p.nextDialAt.Sub(now).Round(time.Millisecond))
		}
		ch, closeConn, err := p.dial()
		if err != nil {
			p.nextDialAt = p.now().Add(RedialBackoff)
			return err
		}
		p.ch, p.closeConn = ch, closeConn
		p.nextDialAt = time.Time{}
	}

	if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.resetLocked()
		return fmt.Errorf("rabbitmq: declare queue %s: %w", queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("rabbitmq: publish to %s: %w", queue, err)
	}
	return nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			p.logger.Debug("rabbitmq channel close failed", slog.Any("error", err))
		}
	}
	if p.closeConn != nil {
		if err := p.closeConn(); err != nil {
			p.logger.Debug("rabbitmq connection close failed", slog.Any("error", err))
		}
	}
	p.ch, p.closeConn = nil, nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
