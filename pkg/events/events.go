// Package events publishes marketplace lifecycle events to an AMQP broker so
// downstream consumers (billing, notifications) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/resilience"
)

// Routing keys for the events the exchange emits.
const (
	KeyLeadSubmitted        = "lead.submitted"
	KeyLeadStatusChanged    = "lead.status_changed"
	KeyConnectionActivated  = "connection.activated"
	KeyConnectionTerminated = "connection.terminated"
)

// Publisher sends an event to downstream consumers. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close()
}

// NopPublisher drops every event. It stands in when no broker is configured
// or the broker is unreachable at startup.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, key string, _ any) error {
	zap.L().Debug("event publish skipped", zap.String("key", key))
	return nil
}

func (NopPublisher) Close() {}

// AMQPPublisher publishes events to a durable topic exchange over RabbitMQ.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQP connects to the broker and declares the exchange, retrying the
// dial while the broker is still coming up. The URL usually comes straight
// from an env var, so surrounding whitespace and quotes are stripped before
// dialing.
func NewAMQP(ctx context.Context, brokerURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeURL(brokerURL)
	if err != nil {
		return nil, err
	}

	dial := resilience.DialConfig()
	dial.OnRetry = resilience.RetryLogger("amqp", "dial")
	conn, err := resilience.DoVal(ctx, dial, func(context.Context) (*amqp.Connection, error) {
		return amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	})
	if err != nil {
		return nil, eris.Wrap(err, "events: dial broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "events: open channel")
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, eris.Wrapf(err, "events: declare exchange %s", exchange)
	}

	zap.L().Info("amqp publisher connected", zap.String("exchange", exchange))
	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish sends payload as JSON to the exchange under the routing key. A
// failed publish reopens the channel once and retries, since the broker
// closes channels on any protocol error.
func (p *AMQPPublisher) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "events: marshal %s payload", key)
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		Type:        key,
		Timestamp:   time.Now().UTC(),
		Body:        body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if err == nil {
		zap.L().Debug("event published", zap.String("key", key))
		return nil
	}

	zap.L().Warn("publish failed, reopening channel", zap.String("key", key), zap.Error(err))
	channel, chErr := p.conn.Channel()
	if chErr != nil {
		return eris.Wrapf(err, "events: publish %s", key)
	}
	p.channel = channel
	if err := p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		return eris.Wrapf(err, "events: publish %s", key)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// sanitizeURL strips whitespace and stray quotes that sneak in through env
// var values, then validates the scheme.
func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), `"'`)
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", eris.Wrap(err, "events: parse broker url")
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", eris.Errorf("events: broker url scheme must be amqp or amqps, got %q", parsed.Scheme)
	}
	return clean, nil
}
