// Package bus holds the routing-key constants table and the command/event
// publisher (Command Egress, SPEC_FULL.md §2.1/§4.7) shared by the two
// sagas and the ingress consumers.
package bus

// Exchange names (§2 of SPEC_FULL.md: events, command, saga, logs).
const (
	EventsExchange  = "events_exchange"
	CommandExchange = "command_exchange"
	SagaExchange    = "saga_exchange"
	LogsExchange    = "logs_exchange"
)

// Outbound routing keys (§6 published).
const (
	KeyPay            = "pay"
	KeyCheckDelivery   = "check.delivery"
	KeyReturnMoney     = "return.money"
	KeyCancelFabrication = "cmd.cancel_fabrication"
	KeyRefund          = "cmd.refund"
	KeyWarehouseOrder  = "warehouse.order"
	KeyOrderCreated    = "order.created"
	KeyOrderFabricated = "order.fabricated"
)

// Inbound routing keys / bindings (§6 consumed).
const (
	BindingPaymentPaid           = "payment.paid"
	BindingPaymentFailed         = "payment.failed"
	BindingPaymentResult         = "payment.result"
	BindingDeliveryResult        = "delivery.result"
	BindingDeliveryFinished      = "delivery.finished"
	BindingDeliveryReady         = "delivery.ready"
	BindingMoneyReturned         = "money.returned"
	BindingAuthRunning           = "auth.running"
	BindingAuthNotRunning        = "auth.not_running"
	BindingFabricationCanceled   = "evt.fabrication_canceled"
	BindingRefundResult          = "refund.result"
	BindingRefundedAlias         = "evt_refunded"
	BindingRefundFailedAlias     = "evt_refund_failed"
	DefaultWarehouseEventsBinding = "warehouse.#"
)
