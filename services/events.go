package services

import "github.com/yeremiapane/restaurant-pos/utils"

// Event names
const (
	EventOrdersUpdated  = "orders_updated"
	EventOrderReady     = "order_ready"
	EventOrderDelivered = "order_delivered"
	EventOrderConfirmed = "order_confirmed"
	EventStockUpdated   = "stock_updated"
	EventStockLow       = "stock_low"
)

// Publisher broadcasts a named event. Implementations must not block the
// caller on slow consumers; events are hints and clients re-fetch state.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Publishers fans an event out to every publisher in order.
type Publishers []Publisher

func (ps Publishers) Publish(event string, payload interface{}) {
	for _, p := range ps {
		if p != nil {
			p.Publish(event, payload)
		}
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) {}

type OrderIDsPayload struct {
	OrderIDs []uint `json:"orderIds"`
}

type OrderPayload struct {
	OrderID uint `json:"orderId"`
}

type StockPayload struct {
	StockID uint `json:"stockId"`
}

// emitter collects events during a transaction; flush publishes them once the
// transaction has committed.
type emitter struct {
	events []pendingEvent
}

type pendingEvent struct {
	name    string
	payload interface{}
}

func (e *emitter) add(name string, payload interface{}) {
	e.events = append(e.events, pendingEvent{name: name, payload: payload})
}

func (e *emitter) flush(p Publisher) {
	if p == nil {
		return
	}
	for _, ev := range e.events {
		utils.InfoLogger.WithField("event", ev.name).Debug("publishing event")
		p.Publish(ev.name, ev.payload)
	}
	e.events = nil
}
