package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. Label values are drawn from closed sets (status, role)
// so cardinality stays bounded.
var (
	// OrdersCreated counts orders created, excluding idempotent replays.
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created.",
		},
	)

	// StatusTransitions counts applied order status changes by target status.
	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Total number of applied order status transitions.",
		},
		[]string{"to"},
	)

	// MessagesAppended counts chat messages by sender role.
	MessagesAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Total number of chat messages appended.",
		},
		[]string{"role"},
	)

	// AssignmentsReplaced counts technician assignment writes.
	AssignmentsReplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "technician_assignments_total",
			Help: "Total number of technician assignment writes.",
		},
	)
)

func init() {
	prometheus.MustRegister(OrdersCreated, StatusTransitions, MessagesAppended, AssignmentsReplaced)
}
