// Package metrics exposes optional Prometheus instrumentation for a
// running client session. Wiring them in is opt-in: a caller that never
// registers the collectors pays only the cost of a few atomic increments.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups every counter/gauge the session engine updates. Build
// one with New; the zero value has nil collectors and is not usable. The
// collectors count whether or not they are registered; Register only
// exposes them through a registry.
type Collectors struct {
	PacketsSent       prometheus.Counter
	PacketsReceived   prometheus.Counter
	ResendsRequested  prometheus.Counter
	ResendsReceived   prometheus.Counter
	Reconnects        prometheus.Counter
	CommandsApplied   prometheus.Counter
	CommandsDropped   prometheus.Counter
	EventsDispatched  prometheus.Counter
	SessionState      prometheus.Gauge
}

// New builds a fresh, unregistered set of collectors.
func New() *Collectors {
	return &Collectors{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_packets_sent_total",
			Help: "Total packets sent to the switcher, including retransmissions.",
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_packets_received_total",
			Help: "Total packets received from the switcher, including duplicates.",
		}),
		ResendsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_resends_requested_total",
			Help: "Total resend requests sent after a gap was detected.",
		}),
		ResendsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_resends_received_total",
			Help: "Total resend requests received from the switcher.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_reconnects_total",
			Help: "Total number of times the session restarted its handshake.",
		}),
		CommandsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_commands_applied_total",
			Help: "Total inbound commands applied to the state store.",
		}),
		CommandsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_commands_dropped_total",
			Help: "Total inbound commands skipped because their tag has no handler.",
		}),
		EventsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atem_events_dispatched_total",
			Help: "Total packets processed while active that emitted at least one event category.",
		}),
		SessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atem_session_state",
			Help: "Current session state: 0=not connected, 1=connected, 2=initializing, 3=active.",
		}),
	}
}

// Register attaches every collector to reg. Calling it more than once, or
// with a nil Collectors, is a programmer error the caller should avoid,
// matching prometheus.Registry's own contract.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.PacketsSent, c.PacketsReceived, c.ResendsRequested, c.ResendsReceived,
		c.Reconnects, c.CommandsApplied, c.CommandsDropped, c.EventsDispatched,
		c.SessionState,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
