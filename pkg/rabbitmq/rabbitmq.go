// Package rabbitmq is a thin adapter over amqp091-go: the Message Bus
// Adapter of SPEC_FULL.md §2.1 — declare(exchange|queue), bind, publish,
// consume, nothing else.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds the RabbitMQ connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	VHost    string
}

// RabbitMQ is a single-channel RabbitMQ client, reconnecting lazily
// before every operation.
type RabbitMQ struct {
	config     Config
	connection *amqp.Connection
	channel    *amqp.Channel
}

func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		config: cfg,
	}

	err := rmq.connect()
	if err != nil {
		return nil, err
	}

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.config.User, r.config.Password, r.config.Host, r.config.Port, r.config.VHost)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	r.connection = conn

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	r.channel = ch

	return nil
}

// reconnect restores the connection/channel if either was torn down.
func (r *RabbitMQ) reconnect() error {
	if r.connection != nil && !r.connection.IsClosed() {
		return nil
	}

	log.Println("reconnecting to RabbitMQ...")
	return r.connect()
}

// Close tears down the channel and connection.
func (r *RabbitMQ) Close() error {
	var err error
	if r.channel != nil {
		if err = r.channel.Close(); err != nil {
			return fmt.Errorf("closing channel: %w", err)
		}
	}
	if r.connection != nil {
		if err = r.connection.Close(); err != nil {
			return fmt.Errorf("closing connection: %w", err)
		}
	}
	return nil
}

// DeclareExchange declares a durable exchange of the given kind.
func (r *RabbitMQ) DeclareExchange(name string, kind string) error {
	if err := r.reconnect(); err != nil {
		return fmt.Errorf("reconnect before declaring exchange: %w", err)
	}

	return r.channel.ExchangeDeclare(
		name,  // name
		kind,  // type
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

// DeclareQueue declares a durable queue.
func (r *RabbitMQ) DeclareQueue(name string) error {
	if err := r.reconnect(); err != nil {
		return fmt.Errorf("reconnect before declaring queue: %w", err)
	}

	_, err := r.channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

// DeclareQueueWithReturn declares a durable queue and returns its info.
func (r *RabbitMQ) DeclareQueueWithReturn(name string) (amqp.Queue, error) {
	if err := r.reconnect(); err != nil {
		return amqp.Queue{}, fmt.Errorf("reconnect before declaring queue: %w", err)
	}

	return r.channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// BindQueue binds a queue to an exchange under a routing key.
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	if err := r.reconnect(); err != nil {
		return fmt.Errorf("reconnect before binding queue: %w", err)
	}

	return r.channel.QueueBind(
		queueName,    // queue name
		routingKey,   // routing key
		exchangeName, // exchange
		false,        // no-wait
		nil,          // arguments
	)
}

// PublishMessage publishes message as persistent, JSON-encoded content.
func (r *RabbitMQ) PublishMessage(exchange, routingKey string, message interface{}) error {
	if err := r.reconnect(); err != nil {
		return fmt.Errorf("reconnect before publishing: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return r.channel.PublishWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// PublishMessageWithRetry publishes with a bounded linear backoff,
// grounding SPEC_FULL.md's BusFailure handling (§8: retry within the
// handler, bounded).
func (r *RabbitMQ) PublishMessageWithRetry(exchange, routingKey string, message interface{}, retries int) error {
	var err error
	for i := 0; i <= retries; i++ {
		if err = r.PublishMessage(exchange, routingKey, message); err == nil {
			return nil
		}

		log.Printf("publish attempt %d/%d failed: %v", i+1, retries+1, err)

		if i < retries {
			backoff := time.Duration(i+1) * time.Second
			log.Printf("retrying in %v...", backoff)
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("failed to publish after %d attempts: %w", retries+1, err)
}

// ConsumeMessages starts a background goroutine delivering queue messages
// to handler, acking on success and nacking-with-requeue on error.
func (r *RabbitMQ) ConsumeMessages(queueName, consumerName string, handler func([]byte) error) error {
	if err := r.reconnect(); err != nil {
		return fmt.Errorf("reconnect before consuming: %w", err)
	}

	if !containsTimestamp(consumerName) {
		consumerName = fmt.Sprintf("%s-%d", consumerName, time.Now().UnixNano())
	}

	msgs, err := r.channel.Consume(
		queueName,    // queue
		consumerName, // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)

	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go r.HandleMessages(msgs, handler)

	return nil
}

// containsTimestamp is a heuristic for "does this consumer tag already
// carry a unique numeric suffix" (a run of at least 10 consecutive
// digits anywhere in the tag).
func containsTimestamp(s string) bool {
	var consecutiveDigits int
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			consecutiveDigits++
			if consecutiveDigits >= 10 {
				return true
			}
		} else {
			consecutiveDigits = 0
		}
	}
	return false
}

func (r *RabbitMQ) HandleMessages(msgs <-chan amqp.Delivery, handler func([]byte) error) {
	for msg := range msgs {
		err := handler(msg.Body)
		if err != nil {
			log.Printf("error handling message: %v", err)
			msg.Nack(false, true)
		} else {
			msg.Ack(false)
		}
	}
}
