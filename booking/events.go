package booking

import (
	"sync"

	"go.uber.org/zap"

	"cinebook-cli/model"
)

// EventKind is a bit flag; subscriptions filter on an OR-ed mask.
type EventKind int

const (
	EventSelection EventKind = 1 << iota
	EventSeatMap
	EventOrder
	EventPrice
	EventError

	EventAll = EventSelection | EventSeatMap | EventOrder | EventPrice | EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSelection:
		return "selectionChanged"
	case EventSeatMap:
		return "seatMapChanged"
	case EventOrder:
		return "orderChanged"
	case EventPrice:
		return "priceChanged"
	case EventError:
		return "error"
	default:
		return "event"
	}
}

// ErrorDetail is the payload of an error event.
type ErrorDetail struct {
	Kind        ErrorKind
	Detail      string
	Recoverable bool
}

// Event is a notification from the coordinator. Only the fields relevant
// to the Kind are populated; Phase and Selection are always set.
type Event struct {
	Kind      EventKind
	Phase     Phase
	Selection model.SelectionState

	Cinemas  []model.Cinema
	Films    []model.Film
	Dates    []model.ShowDate
	Sessions []model.Session

	Matrix   *model.SeatMatrix
	Order    *model.Order
	Quote    *model.PriceQuote
	Vouchers []model.Voucher
	Ticket   *model.TicketCode

	Err *ErrorDetail
}

// Subscription receives events whose kind matches its mask.
type Subscription struct {
	kinds EventKind
	ch    chan Event
}

// Events is the channel events are delivered on, in emission order.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Notifier fans events out to kind-filtered subscribers. Delivery is
// ordered per subscriber; a subscriber that stops draining its channel
// loses events rather than blocking the coordinator.
type Notifier struct {
	mu   sync.Mutex
	subs []*Subscription
	log  *zap.Logger
}

func NewNotifier(log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{log: log}
}

// Subscribe registers a subscriber for the given kinds. A zero mask
// subscribes to everything.
func (n *Notifier) Subscribe(kinds EventKind) *Subscription {
	if kinds == 0 {
		kinds = EventAll
	}
	sub := &Subscription{kinds: kinds, ch: make(chan Event, 128)}
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return sub
}

// Unsubscribe removes and closes a subscription.
func (n *Notifier) Unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

func (n *Notifier) publish(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		if sub.kinds&e.Kind == 0 {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			n.log.Warn("event dropped: slow subscriber", zap.Stringer("kind", e.Kind))
		}
	}
}
