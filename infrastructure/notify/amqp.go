package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roster-lab/domain"
	"roster-lab/errors"
)

const (
	ExchangeName = "notifications"
	ExchangeKind = "topic"
)

// envelope is the wire form of a notification. Routing key is
// "notify.<kind>" so downstream delivery bots can bind per kind.
type envelope struct {
	Kind      domain.NoticeKind `json:"kind"`
	Recipient domain.UserID     `json:"recipient"`
	Tenant    domain.TenantID   `json:"tenant"`
	Session   string            `json:"session"`
	User      domain.UserID     `json:"user,omitempty"`
	Position  int               `json:"position,omitempty"`
	Deadline  *time.Time        `json:"deadline,omitempty"`
}

// AMQPNotifier publishes notifications to a RabbitMQ topic exchange. The
// actual user-facing rendering and delivery (chat bot, mail, push) lives
// in whatever consumes the exchange.
type AMQPNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &AMQPNotifier{conn: conn, channel: ch}, nil
}

func (n *AMQPNotifier) Send(ctx context.Context, recipient domain.UserID, notice domain.Notification) error {
	msg := envelope{
		Kind:      notice.Kind,
		Recipient: recipient,
		Tenant:    notice.Tenant,
		Session:   notice.Session.String(),
		User:      notice.User,
		Position:  notice.Position,
	}
	if !notice.Deadline.IsZero() {
		msg.Deadline = &notice.Deadline
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	routingKey := fmt.Sprintf("notify.%s", notice.Kind)
	err = n.channel.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDelivery, err)
	}
	return nil
}

func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
