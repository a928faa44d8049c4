package bus

import (
	"fmt"

	"github.com/santosdev/order-orchestrator/pkg/auditlog"
)

// bounded retry count for BusFailure handling (§7/§8 of SPEC_FULL.md).
const publishRetries = 2

// Client is the bus capability Egress needs, grounded on the teacher's
// SagaRabbitMQClient interface — kept narrow so tests can substitute a
// mock instead of a real *rabbitmq.RabbitMQ.
type Client interface {
	DeclareExchange(name, kind string) error
	PublishMessage(exchange, routingKey string, message interface{}) error
	PublishMessageWithRetry(exchange, routingKey string, message interface{}, retries int) error
}

// Egress is the Command Egress of SPEC_FULL.md §2.1/§4.7: it publishes
// every outbound command/event on the right exchange with persistent
// delivery, and mirrors each publish to the audit logger.
type Egress struct {
	client Client
	audit  *auditlog.Logger
}

func NewEgress(client Client, audit *auditlog.Logger) *Egress {
	return &Egress{client: client, audit: audit}
}

// Declare sets up the four exchanges the orchestrator talks on. All are
// topic exchanges, durable, grounded on pkg/rabbitmq.DeclareExchange.
func (e *Egress) Declare() error {
	for _, ex := range []string{EventsExchange, CommandExchange, SagaExchange, LogsExchange} {
		if err := e.client.DeclareExchange(ex, "topic"); err != nil {
			return fmt.Errorf("declaring exchange %s: %w", ex, err)
		}
	}
	return nil
}

// Publish emits payload on exchange/routingKey with a bounded retry, and
// records the attempt via the audit logger regardless of outcome.
func (e *Egress) Publish(exchange, routingKey string, payload interface{}) error {
	err := e.client.PublishMessageWithRetry(exchange, routingKey, payload, publishRetries)
	fields := map[string]interface{}{"exchange": exchange, "routing_key": routingKey}
	if err != nil {
		e.audit.Error("publish failed", err, fields)
		return err
	}
	e.audit.Debug("published", fields)
	return nil
}

// PublishCommand is Publish pinned to the command exchange — the
// confirmation/cancellation sagas' entry-hook commands.
func (e *Egress) PublishCommand(routingKey string, payload interface{}) error {
	return e.Publish(CommandExchange, routingKey, payload)
}

// PublishEvent is Publish pinned to the events exchange.
func (e *Egress) PublishEvent(routingKey string, payload interface{}) error {
	return e.Publish(EventsExchange, routingKey, payload)
}
