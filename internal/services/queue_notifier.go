package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentConfirmedQueue receives one message per paid group
const PaymentConfirmedQueue = "payment.confirmed"

// QueueNotifier publishes confirmations to RabbitMQ for downstream consumers.
// A connection is dialed per publish; confirmations are rare.
type QueueNotifier struct {
	url   string
	queue string
}

func NewQueueNotifier(url string) *QueueNotifier {
	return &QueueNotifier{url: url, queue: PaymentConfirmedQueue}
}

func (n *QueueNotifier) NotifyPaymentConfirmed(ctx context.Context, c PaymentConfirmation) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		log.Printf("[Notify] rabbitmq dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("[Notify] rabbitmq channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		log.Printf("[Notify] rabbitmq queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    c.CheckoutID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
