package metrics

import "github.com/prometheus/client_golang/prometheus"

// TicketMetrics counts issuance and door validations.
type TicketMetrics struct {
	issued      *prometheus.CounterVec
	validations *prometheus.CounterVec
	admitted    prometheus.Counter
	expired     prometheus.Counter
}

// NewTicketMetrics registers the ticket metrics on the provided registerer.
func NewTicketMetrics(reg prometheus.Registerer) *TicketMetrics {
	if reg == nil {
		return &TicketMetrics{}
	}
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tickets",
		Name:      "issued_total",
		Help:      "Tickets issued, by ticket type.",
	}, []string{"ticket_type"})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tickets",
		Name:      "validations_total",
		Help:      "Ticket scans, by outcome.",
	}, []string{"outcome"})
	admitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tickets",
		Name:      "admitted_total",
		Help:      "Tickets marked as used at the door.",
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tickets",
		Name:      "expired_total",
		Help:      "Tickets expired by the expiry job.",
	})
	reg.MustRegister(issued, validations, admitted, expired)
	return &TicketMetrics{
		issued:      issued,
		validations: validations,
		admitted:    admitted,
		expired:     expired,
	}
}

// AddIssued adds n issued tickets of the given type.
func (m *TicketMetrics) AddIssued(ticketType string, n int) {
	if m == nil || m.issued == nil || n <= 0 {
		return
	}
	m.issued.WithLabelValues(normalizeLabel(ticketType)).Add(float64(n))
}

// IncValidation counts a scan outcome; "valid" for accepted tickets, otherwise the reason.
func (m *TicketMetrics) IncValidation(outcome string) {
	if m == nil || m.validations == nil {
		return
	}
	m.validations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *TicketMetrics) IncAdmitted() {
	if m == nil || m.admitted == nil {
		return
	}
	m.admitted.Inc()
}

func (m *TicketMetrics) AddExpired(n int) {
	if m == nil || m.expired == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}
