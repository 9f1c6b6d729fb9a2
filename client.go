// Package atem implements a client for the proprietary UDP control
// protocol spoken by a family of live video production switchers: packet
// framing, the command codec, sequence tracking, the session engine,
// mirrored state, and event dispatch.
package atem

import (
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/torresjeff/atem/command"
	"github.com/torresjeff/atem/config"
	"github.com/torresjeff/atem/event"
	"github.com/torresjeff/atem/metrics"
	"github.com/torresjeff/atem/rand"
	"github.com/torresjeff/atem/state"
)

// Client is one long-lived session with a single switcher. Construct one
// with Connect; it owns a background receive goroutine until Close is
// called.
type Client struct {
	id      string
	logger  *zap.Logger
	store   *state.Store
	disp    *event.Dispatcher
	metrics *metrics.Collectors
	session *session
	done    chan struct{}
}

// Option configures optional Client behavior at construction time.
type Option func(*Client)

// WithLogger overrides the client's zap logger. The default is a no-op
// logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics attaches a metrics.Collectors instance; every collector
// must already be registered to whatever registry the caller uses.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *Client) { c.metrics = m }
}

// Connect dials addr (host:port, or bare host — config.DefaultPort is
// assumed) and begins the handshake asynchronously. The returned Client
// is usable immediately; Connected reports once the handshake completes.
func Connect(addr string, opts ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	if port == "" {
		addr = net.JoinHostPort(host, strconv.Itoa(config.DefaultPort))
	}

	tp, err := dialUDP(addr)
	if err != nil {
		return nil, err
	}

	c := &Client{
		id:     rand.GenerateInstanceID(),
		logger: zap.NewNop(),
		store:  state.New(nil),
		disp:   &event.Dispatcher{},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger != nil {
		c.logger = c.logger.With(zap.String("instanceID", c.id), zap.String("remote", addr))
	}
	c.store = state.New(c.logger)
	c.session = newSession(tp, c.store, c.disp, c.metrics, c.logger)

	go c.session.run(c.done)
	return c, nil
}

// Connected reports whether the handshake has completed and the session
// is exchanging commands normally.
func (c *Client) Connected() bool {
	return c.session.stateSnapshot() == int(active)
}

// Lock acquires the state store for exclusive access, blocking up to
// config.StateLockBudget. The returned Guard exposes every typed getter
// and setter in the state package; callers must call Release.
func (c *Client) Lock() (*state.Guard, error) {
	g, ok := c.store.TryLockTimeout(config.StateLockBudget)
	if !ok {
		return nil, ErrStateLockTimeout
	}
	return g, nil
}

// RLock is Lock's read-only counterpart.
func (c *Client) RLock() (*state.Guard, error) {
	g, ok := c.store.TryRLockTimeout(config.StateLockBudget)
	if !ok {
		return nil, ErrStateLockTimeout
	}
	return g, nil
}

// SendCommands encodes cmds into a single outbound packet and transmits
// it, per spec §6: an empty batch is rejected as ErrInvalidArgument, a
// batch too large for one packet as ErrOversizedBatch, and lock
// contention on the send-retention ring as ErrSendTimeout.
func (c *Client) SendCommands(cmds ...command.Outbound) error {
	return c.session.sendCommands(cmds)
}

// OnEvent registers h to be called once per coalesced category, per
// packet (spec §4.6/§6).
func (c *Client) OnEvent(h event.Handler) {
	c.disp.Subscribe(h)
}

// SizeInBytes returns an approximate memory footprint of the mirrored
// state, for diagnostics only.
func (c *Client) SizeInBytes() int {
	return c.store.SizeInBytes()
}

// SaveStartupState asks the switcher to persist its current state as its
// power-on default (spec §4.2 SRsv, supplemented convenience wrapper).
func (c *Client) SaveStartupState() error {
	return c.SendCommands(command.SaveStartupState())
}

// CaptureStill captures the current program output to the still pool
// (spec §4.2 Capt, supplemented convenience wrapper).
func (c *Client) CaptureStill() error {
	return c.SendCommands(command.CaptureStill())
}

// Close tears down the receive goroutine and the underlying socket. Any
// outbound commands not yet transmitted are dropped, matching the
// reconnect semantics of §4.4 and §7's cancellation policy.
func (c *Client) Close() error {
	close(c.done)
	return c.session.tp.Close()
}

// InstanceID returns the UUID correlating this client's log lines; it
// never appears on the wire.
func (c *Client) InstanceID() string { return c.id }
