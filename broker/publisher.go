package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const publishTimeout = 3 * time.Second

// Publisher forwards domain events to a RabbitMQ fanout exchange so that
// consumers outside this process (stock, notifications) can react.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

type envelope struct {
	Event      string      `json:"event"`
	Data       interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Dial connects to url and declares the durable fanout exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish is fire-and-forget: failures are logged and the event dropped.
func (p *Publisher) Publish(event string, payload interface{}) {
	msg, err := encode(event, payload, time.Now().UTC())
	if err != nil {
		utils.ErrorLogger.WithField("event", event).Errorf("failed to encode event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, event, false, false, msg); err != nil {
		utils.ErrorLogger.WithField("event", event).Errorf("failed to publish event: %v", err)
	}
}

func encode(event string, payload interface{}, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(envelope{Event: event, Data: payload, OccurredAt: at})
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		ContentType:  "application/json",
		Type:         event,
		Body:         body,
	}, nil
}
