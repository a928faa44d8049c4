// Package rabbitmq is the Event Ingress of SPEC_FULL.md §2.1/§5.6: one
// consumer per routing-key family, decoding payloads, correlating to a
// saga, translating external statuses to internal saga events, and
// invoking the state machine. Grounded on
// order-service/internal/controller/rabbitmq/delivery_consumer.go.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/santosdev/order-orchestrator/internal/bus"
	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/internal/repo"
	"github.com/santosdev/order-orchestrator/internal/saga"
	"github.com/santosdev/order-orchestrator/internal/statusnorm"
	"github.com/santosdev/order-orchestrator/pkg/auditlog"
	"github.com/santosdev/order-orchestrator/pkg/rabbitmq"
)

// AuthKeyFetcher is invoked when auth.running is observed on the bus
// (§6: "on running fetch and cache a public key"). Kept as a narrow
// interface so Ingress doesn't need to import internal/authkey.
type AuthKeyFetcher interface {
	FetchAndCache(ctx context.Context) error
}

// Ingress wires every consumed routing key of SPEC_FULL.md §6 to a
// handler.
type Ingress struct {
	rmq          *rabbitmq.RabbitMQ
	orders       repo.OrderRepository
	confirmation *saga.ConfirmationSaga
	cancellation *saga.CancellationSaga
	egress       *bus.Egress
	audit        *auditlog.Logger
	logger       *log.Logger

	warehouseBinding string
	authKeys         AuthKeyFetcher
}

func NewIngress(
	rmq *rabbitmq.RabbitMQ,
	orders repo.OrderRepository,
	confirmation *saga.ConfirmationSaga,
	cancellation *saga.CancellationSaga,
	egress *bus.Egress,
	audit *auditlog.Logger,
	warehouseBinding string,
	authKeys AuthKeyFetcher,
) *Ingress {
	if warehouseBinding == "" {
		warehouseBinding = bus.DefaultWarehouseEventsBinding
	}
	return &Ingress{
		rmq:              rmq,
		orders:           orders,
		confirmation:     confirmation,
		cancellation:     cancellation,
		egress:           egress,
		audit:            audit,
		logger:           log.New(log.Writer(), "[Ingress] ", log.LstdFlags),
		warehouseBinding: warehouseBinding,
		authKeys:         authKeys,
	}
}

type binding struct {
	exchange   string
	queue      string
	routingKey string
	handler    func([]byte) error
}

// Setup declares every exchange this service consumes from, plus every
// queue/binding/consumer it needs. Per spec.md §1, worker→orchestrator
// results (payment/delivery/refund results, fabrication-canceled,
// warehouse progress) arrive on saga_exchange; general/legacy/lifecycle
// events arrive on events_exchange.
func (in *Ingress) Setup() error {
	if err := in.rmq.DeclareExchange(bus.EventsExchange, "topic"); err != nil {
		return fmt.Errorf("declaring events exchange: %w", err)
	}
	if err := in.rmq.DeclareExchange(bus.SagaExchange, "topic"); err != nil {
		return fmt.Errorf("declaring saga exchange: %w", err)
	}

	bindings := []binding{
		{bus.SagaExchange, "order_payment_result_queue", bus.BindingPaymentResult, in.handlePaymentResult},
		{bus.EventsExchange, "order_payment_legacy_paid_queue", bus.BindingPaymentPaid, in.handleLegacyPayment},
		{bus.EventsExchange, "order_payment_legacy_failed_queue", bus.BindingPaymentFailed, in.handleLegacyPayment},
		{bus.SagaExchange, "order_delivery_result_queue", bus.BindingDeliveryResult, in.handleDeliveryResult},
		{bus.EventsExchange, "order_delivery_status_queue", bus.BindingDeliveryFinished, in.handleDeliveryStatus},
		{bus.EventsExchange, "order_delivery_status_queue", bus.BindingDeliveryReady, in.handleDeliveryStatus},
		{bus.SagaExchange, "order_money_returned_queue", bus.BindingMoneyReturned, in.handleMoneyReturned},
		{bus.EventsExchange, "order_auth_running_queue", bus.BindingAuthRunning, in.handleAuthRunning},
		{bus.EventsExchange, "order_auth_not_running_queue", bus.BindingAuthNotRunning, in.handleAuthNotRunning},
		{bus.SagaExchange, "order_warehouse_progress_queue", in.warehouseBinding, in.handleWarehouseProgress},
		{bus.SagaExchange, "order_fabrication_canceled_queue", bus.BindingFabricationCanceled, in.handleFabricationCanceled},
		{bus.SagaExchange, "order_refund_result_queue", bus.BindingRefundResult, in.handleRefundResult},
		{bus.SagaExchange, "order_refund_result_queue", bus.BindingRefundedAlias, in.handleRefundResult},
		{bus.SagaExchange, "order_refund_result_queue", bus.BindingRefundFailedAlias, in.handleRefundResult},
	}

	declared := map[string]bool{}
	for _, b := range bindings {
		if !declared[b.queue] {
			if err := in.rmq.DeclareQueue(b.queue); err != nil {
				return fmt.Errorf("declaring queue %s: %w", b.queue, err)
			}
			declared[b.queue] = true
		}
		if err := in.rmq.BindQueue(b.queue, b.exchange, b.routingKey); err != nil {
			return fmt.Errorf("binding queue %s to %s: %w", b.queue, b.routingKey, err)
		}
	}

	// One consumer per distinct queue; a queue bound to two routing keys
	// (e.g. delivery.finished/delivery.ready) shares one handler since the
	// payload schema is identical (§9: "treat as synonyms").
	consumedQueues := map[string]func([]byte) error{}
	for _, b := range bindings {
		consumedQueues[b.queue] = b.handler
	}
	for queue, handler := range consumedQueues {
		if err := in.rmq.ConsumeMessages(queue, "order-orchestrator-"+queue, handler); err != nil {
			return fmt.Errorf("consuming %s: %w", queue, err)
		}
	}

	in.logger.Printf("ingress consumers configured for %d queues", len(consumedQueues))
	return nil
}

func (in *Ingress) handlePaymentResult(data []byte) error {
	var evt bus.PaymentResultEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed payment.result: %v", err)
		return nil
	}
	if evt.OrderID == 0 {
		in.logger.Printf("payment.result missing order_id, dropping")
		return nil
	}

	var confirmationEvent saga.ConfirmationEvent
	switch evt.Status {
	case "paid":
		confirmationEvent = saga.EventPaymentAccepted
	case "not_paid":
		confirmationEvent = saga.EventPaymentRejected
	default:
		in.logger.Printf("OrderID=%d: unknown payment.result status %q, dropping", evt.OrderID, evt.Status)
		return nil
	}

	return in.dropUnknownCorrelation(in.confirmation.HandleEvent(context.Background(), evt.OrderID, confirmationEvent, ""))
}

// handleLegacyPayment backs payment.paid/payment.failed — informational
// only: it records an audit entry and returns; it does not update
// creation_status and never drives the saga.
func (in *Ingress) handleLegacyPayment(data []byte) error {
	var evt bus.LegacyPaymentEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed legacy payment event: %v", err)
		return nil
	}
	in.audit.Info("legacy payment event observed, informational only", map[string]interface{}{"order_id": evt.OrderID})
	return nil
}

func (in *Ingress) handleDeliveryResult(data []byte) error {
	var evt bus.DeliveryResultEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed delivery.result: %v", err)
		return nil
	}
	if evt.OrderID == 0 {
		in.logger.Printf("delivery.result missing order_id, dropping")
		return nil
	}

	var confirmationEvent saga.ConfirmationEvent
	switch evt.Status {
	case "deliverable":
		confirmationEvent = saga.EventDeliveryPossible
	case "not_deliverable":
		confirmationEvent = saga.EventDeliveryNotPossible
	default:
		in.logger.Printf("OrderID=%d: unknown delivery.result status %q, dropping", evt.OrderID, evt.Status)
		return nil
	}

	return in.dropUnknownCorrelation(in.confirmation.HandleEvent(context.Background(), evt.OrderID, confirmationEvent, ""))
}

// handleDeliveryStatus backs delivery.finished/delivery.ready: it updates
// delivery_status directly — it is not a saga-correlated event.
func (in *Ingress) handleDeliveryStatus(data []byte) error {
	var evt bus.DeliveryStatusEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed delivery status event: %v", err)
		return nil
	}
	if evt.OrderID == 0 {
		return nil
	}

	var status entity.DeliveryStatus
	switch evt.Status {
	case "ready":
		status = entity.DeliveryReady
	case "delivered":
		status = entity.DeliveryDelivered
	case "failed":
		status = entity.DeliveryFailed
	default:
		in.logger.Printf("OrderID=%d: unknown delivery status %q, dropping", evt.OrderID, evt.Status)
		return nil
	}

	if _, err := in.orders.UpdateDeliveryStatus(context.Background(), evt.OrderID, status); err != nil {
		in.logger.Printf("OrderID=%d: delivery status update failed: %v", evt.OrderID, err)
		return err
	}
	return nil
}

func (in *Ingress) handleMoneyReturned(data []byte) error {
	var evt bus.MoneyReturnedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed money.returned: %v", err)
		return nil
	}
	if evt.OrderID == 0 {
		return nil
	}
	return in.dropUnknownCorrelation(in.confirmation.HandleEvent(context.Background(), evt.OrderID, saga.EventMoneyReturned, ""))
}

func (in *Ingress) handleAuthRunning(data []byte) error {
	if in.authKeys == nil {
		return nil
	}
	if err := in.authKeys.FetchAndCache(context.Background()); err != nil {
		in.audit.Error("auth public key fetch failed", err, nil)
	}
	return nil
}

func (in *Ingress) handleAuthNotRunning(data []byte) error {
	in.audit.Info("auth service reported not running", nil)
	return nil
}

// handleWarehouseProgress implements §4.6 exactly: parse, load, normalize,
// terminal-skip, persist, and publish order.fabricated at most once.
func (in *Ingress) handleWarehouseProgress(data []byte) error {
	var evt bus.WarehouseProgressEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed warehouse progress event: %v", err)
		return nil
	}
	if evt.OrderID == 0 {
		in.logger.Printf("warehouse progress event missing order_id, dropping")
		return nil
	}

	ctx := context.Background()
	order, err := in.orders.GetByID(ctx, evt.OrderID)
	if err != nil {
		in.logger.Printf("OrderID=%d: order not found for warehouse progress, acking: %v", evt.OrderID, err)
		return nil
	}

	if order.FabricationStatus.IsTerminal() {
		in.audit.Info("duplicate warehouse progress event, ignoring", map[string]interface{}{"order_id": evt.OrderID, "status": order.FabricationStatus})
		return nil
	}

	previous := order.FabricationStatus
	next := statusnorm.Normalize(evt.RawStatus())

	updated, err := in.orders.UpdateFabricationStatus(ctx, evt.OrderID, next)
	if err != nil {
		// TransientPersistenceFailure: nack so the bus redelivers.
		return err
	}

	if next == entity.FabricationCompleted && previous != entity.FabricationCompleted && updated.DeliveryStatus == entity.DeliveryNotStarted {
		return in.egress.PublishEvent(bus.KeyOrderFabricated, bus.OrderFabricatedPayload{
			OrderID:        updated.ID,
			NumberOfPieces: updated.NumberOfPieces,
			UserID:         updated.ClientID,
		})
	}
	return nil
}

func (in *Ingress) handleFabricationCanceled(data []byte) error {
	var evt bus.FabricationCanceledEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed evt.fabrication_canceled: %v", err)
		return nil
	}
	if evt.SagaID == "" {
		return nil
	}
	return in.dropUnknownCorrelation(in.cancellation.HandleEvent(context.Background(), evt.SagaID, saga.EventFabricationCanceled, ""))
}

func (in *Ingress) handleRefundResult(data []byte) error {
	var evt bus.RefundResultEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		in.logger.Printf("malformed refund.result: %v", err)
		return nil
	}
	if evt.SagaID == "" {
		return nil
	}

	var cancellationEvent saga.CancellationEvent
	switch evt.Status {
	case "refunded":
		cancellationEvent = saga.EventRefunded
	default:
		cancellationEvent = saga.EventRefundFailed
	}

	return in.dropUnknownCorrelation(in.cancellation.HandleEvent(context.Background(), evt.SagaID, cancellationEvent, evt.Reason))
}

// dropUnknownCorrelation implements §7's UnknownCorrelation rule: log at
// warning, ack, drop — never nack a message just because its saga is
// gone or never existed.
func (in *Ingress) dropUnknownCorrelation(err error) error {
	if errors.Is(err, saga.ErrUnknownConfirmationSaga) || errors.Is(err, saga.ErrUnknownCancellationSaga) {
		return nil
	}
	return err
}
