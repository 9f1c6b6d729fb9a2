package atem

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/torresjeff/atem/command"
	"github.com/torresjeff/atem/config"
	"github.com/torresjeff/atem/event"
	"github.com/torresjeff/atem/internal/seq"
	"github.com/torresjeff/atem/metrics"
	"github.com/torresjeff/atem/packet"
	"github.com/torresjeff/atem/state"
)

// connState is the session's position in the handshake state machine
// (spec §4.4).
type connState int

const (
	notConnected connState = iota
	connected
	initializing
	active
)

func (c connState) String() string {
	switch c {
	case notConnected:
		return "NOT_CONNECTED"
	case connected:
		return "CONNECTED"
	case initializing:
		return "INITIALIZING"
	case active:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// session owns the receive loop and every piece of mutable connection
// state: handshake progress, ID counters, the retransmit ring, and the
// sequence tracker. A Client is a thin public wrapper around one session.
type session struct {
	logger *zap.Logger
	tp     *transport
	store  *state.Store
	disp   *event.Dispatcher
	metric *metrics.Collectors

	stateMu sync.Mutex // guards the fields below; receive loop + API senders both touch it
	cs      connState
	sid     uint16 // latched session ID; 0x0B06 before the peer assigns one
	localID uint16
	remoteID uint16 // most recently observed peer packet ID; used as ack_id

	tracker *seq.Tracker

	ringMu sync.Mutex
	ring   *retentionRing

	version state.Version

	pending      event.Set // boot-time events, flushed on entering ACTIVE
	emptyReads   int
	lastPeerSeen time.Time
}

func newSession(tp *transport, store *state.Store, disp *event.Dispatcher, m *metrics.Collectors, logger *zap.Logger) *session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &session{
		logger: logger,
		tp:     tp,
		store:  store,
		disp:   disp,
		metric: m,
		cs:     notConnected,
		sid:    config.InitialSessionID,
		ring:   newRetentionRing(config.RetransmitRingSize),
	}
}

// run is the long-lived receive loop. It returns only when the transport
// is closed or the done channel fires.
func (s *session) run(done <-chan struct{}) {
	s.sendInit()

	buf := make([]byte, config.MaxPacketSize)
	for {
		select {
		case <-done:
			return
		default:
		}

		data, err := s.tp.ReadDatagram(buf, time.Now().Add(config.ReadTimeout))
		if err != nil {
			s.onEmptyRead()
			continue
		}
		s.emptyReads = 0
		s.lastPeerSeen = time.Now()
		s.handleDatagram(data)
	}
}

// onEmptyRead runs after each timed-out socket read. The two liveness
// triggers in spec §4.4 are unified into one ping, as the spec's design
// notes explicitly permit: a read timeout either means the empty-read
// ping threshold was reached (in any state), or (once ACTIVE) that the idle interval has
// elapsed since the last peer byte — either condition sends one ping.
func (s *session) onEmptyRead() {
	s.emptyReads++
	if s.metric != nil {
		s.metric.SessionState.Set(float64(s.stateSnapshot()))
	}
	if s.emptyReads >= config.MaxConsecutiveEmptyReads {
		s.reconnect("liveness timeout: no traffic for 5 consecutive read intervals")
		return
	}

	s.stateMu.Lock()
	isActive := s.cs == active
	s.stateMu.Unlock()

	if s.emptyReads == config.PingAfterEmptyReads ||
		(isActive && time.Since(s.lastPeerSeen) >= config.IdlePingInterval) {
		s.sendPing()
	}
}

func (s *session) stateSnapshot() int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return int(s.cs)
}

// handleDatagram implements the full inbound pipeline: C1 decode, session
// rules, C3 ordering, C2 command iteration, C5 writes, C6 dispatch.
func (s *session) handleDatagram(data []byte) {
	if s.metric != nil {
		s.metric.PacketsReceived.Inc()
	}
	h, err := packet.Decode(data)
	if err != nil {
		s.logger.Warn("atem: malformed header", zap.Error(err))
		return
	}
	if err := h.Validate(len(data)); err != nil {
		s.logger.Warn("atem: declared length does not match datagram size", zap.Error(err))
		return
	}

	s.stateMu.Lock()
	cs := s.cs
	s.stateMu.Unlock()

	switch cs {
	case notConnected, connected:
		s.handleHandshakeFrame(h, data)
		return
	case initializing:
		if h.Flags.Has(packet.AckRequest) && h.Length == packet.HeaderSize {
			s.enterActive(h)
		}
		s.replyIfRequested(h)
		// Boot-time commands (topology, product ID, protocol version) may
		// arrive before ACTIVE; stage their effects the same as any other
		// frame, accumulating into s.pending instead of flushing.
		s.applyFrame(h, data, true)
		return
	case active:
		if h.SessionID != s.sid {
			s.logger.Warn("atem: discarding frame with stale session ID", zap.Uint16("sessionID", h.SessionID))
			return
		}
		s.stateMu.Lock()
		s.remoteID = h.ID
		isNew := s.tracker.Add(h.ID)
		s.stateMu.Unlock()

		s.replyIfRequested(h)
		if !isNew {
			// Duplicate delivery: the peer is re-asking for its ACK, not
			// expecting its commands reprocessed (spec §7).
			return
		}
		s.applyFrame(h, data, false)
		s.checkForGap()
	}
}

// handleHandshakeFrame processes INIT-phase frames (spec §4.4).
func (s *session) handleHandshakeFrame(h packet.Header, data []byte) {
	if !h.Flags.Has(packet.Init) || len(data) < packet.HeaderSize+1 {
		return
	}
	code := data[packet.HeaderSize]
	switch code {
	case 0x02: // accept
		s.stateMu.Lock()
		s.cs = initializing
		s.sid = h.SessionID
		s.stateMu.Unlock()
		s.sendAckReply(h.SessionID, 0)
	case 0x03: // no slot available
		s.logger.Warn("atem: switcher reports no slot available")
	}
}

func (s *session) enterActive(h packet.Header) {
	s.stateMu.Lock()
	s.cs = active
	s.sid = h.SessionID
	s.localID = 0
	s.remoteID = 0
	s.tracker = seq.New()
	pending := s.pending
	s.pending = 0
	s.stateMu.Unlock()

	s.disp.Flush(pending, h.ID)
	s.logger.Info("atem: session active", zap.Uint16("sessionID", h.SessionID))
}

// applyFrame runs C2/C5/C6 over one frame's commands. staging delays
// event emission (boot phase); otherwise categories flush immediately
// after the whole frame has been applied.
func (s *session) applyFrame(h packet.Header, data []byte, staging bool) {
	if len(data) <= packet.HeaderSize {
		return
	}
	g := s.store.Lock()
	var pending event.Set
	err := command.Iterate(data[packet.HeaderSize:], config.MaxCommandsPerPacket, func(in command.Inbound) error {
		if !command.Apply(h.ID, in, g, &pending) {
			if s.metric != nil {
				s.metric.CommandsDropped.Inc()
			}
			if config.Debug {
				s.logger.Debug("atem: unhandled command tag", zap.String("tag", in.TagString()))
			}
			return nil
		}
		if s.metric != nil {
			s.metric.CommandsApplied.Inc()
		}
		if in.TagString() == "_ver" {
			if v, ok := g.ProtocolVersion(); ok {
				s.stateMu.Lock()
				s.version = v
				s.stateMu.Unlock()
			}
		}
		return nil
	})
	g.Release()
	if err != nil {
		s.logger.Warn("atem: command iteration stopped early", zap.Error(err))
	}

	if staging {
		s.stateMu.Lock()
		s.pending |= pending
		s.stateMu.Unlock()
		return
	}
	s.disp.Flush(pending, h.ID)
	if s.metric != nil && pending != 0 {
		s.metric.EventsDispatched.Inc()
	}
}

// replyIfRequested sends a bare ACK_REPLY before commands are processed,
// so the peer is unblocked promptly (spec §5 ordering guarantee).
func (s *session) replyIfRequested(h packet.Header) {
	if h.Flags.Has(packet.AckRequest) {
		s.sendAckReply(h.SessionID, h.ID)
	}
	if h.Flags.Has(packet.ResendRequest) {
		if s.metric != nil {
			s.metric.ResendsReceived.Inc()
		}
		s.handleResendRequest(h.SessionID, h.ResendID)
	}
	if h.Flags.Has(packet.AckReply) {
		s.evictAcked(h.AckID)
	}
}

// checkForGap asks the sequence tracker for a missing ID and, if one
// exists while ACTIVE, issues a RESEND_REQUEST (spec §4.4).
func (s *session) checkForGap() {
	s.stateMu.Lock()
	tracker := s.tracker
	sid := s.sid
	s.stateMu.Unlock()
	if tracker == nil {
		return
	}
	missing, ok := tracker.Missing()
	if !ok {
		return
	}
	h := packet.Header{
		Flags:     packet.ResendRequest | packet.AckReply,
		SessionID: sid,
		ResendID:  missing,
		Reserved:  0x0100,
		ID:        0,
	}
	s.send(packet.Build(h, nil))
	if s.metric != nil {
		s.metric.ResendsRequested.Inc()
	}
}

// handleResendRequest resends a previously retained packet verbatim, or
// synthesizes an empty ACK_REQUEST pretending it was already delivered
// (spec §4.4's "resend as ACK" fallback).
func (s *session) handleResendRequest(sid, id uint16) {
	s.ringMu.Lock()
	data, ok := s.ring.Get(id)
	s.ringMu.Unlock()
	if ok {
		s.send(data)
		return
	}
	h := packet.Header{Flags: packet.AckRequest, SessionID: sid, ID: id}
	s.send(packet.Build(h, nil))
}

func (s *session) evictAcked(ackID uint16) {
	s.ringMu.Lock()
	defer s.ringMu.Unlock()
	s.ring.evictThrough(ackID)
}

func (s *session) sendInit() {
	s.stateMu.Lock()
	s.cs = connected
	sid := s.sid
	s.stateMu.Unlock()

	payload := make([]byte, 8)
	payload[0] = 0x01
	h := packet.Header{Flags: packet.Init, SessionID: sid, ID: 0}
	s.send(packet.Build(h, payload))
}

func (s *session) sendAckReply(sid, ackID uint16) {
	h := packet.Header{Flags: packet.AckReply, SessionID: sid, AckID: ackID}
	s.send(packet.Build(h, nil))
}

// sendPing issues an ACK_REQUEST|ACK_REPLY carrying a fresh local ID, used
// both for the 4th-empty-read liveness probe and the idle keep-alive.
func (s *session) sendPing() {
	s.stateMu.Lock()
	s.localID = packet.NextID(s.localID)
	h := packet.Header{
		Flags:     packet.AckRequest | packet.AckReply,
		SessionID: s.sid,
		AckID:     s.remoteID,
		ID:        s.localID,
	}
	s.stateMu.Unlock()
	s.send(packet.Build(h, nil))
}

// reconnect clears all mirrored state and restarts the handshake (spec
// §4.4: "any state -> NOT_CONNECTED").
func (s *session) reconnect(reason string) {
	s.logger.Warn("atem: reconnecting", zap.String("reason", reason))
	if s.metric != nil {
		s.metric.Reconnects.Inc()
	}
	g := s.store.Lock()
	s.store.Clear()
	g.Release()

	s.stateMu.Lock()
	s.cs = notConnected
	s.localID = 0
	s.remoteID = 0
	s.tracker = nil
	s.pending = 0
	s.emptyReads = 0
	s.stateMu.Unlock()

	s.sendInit()
}

// sendCommands builds one packet carrying every command in cmds, assigns
// it the next local ID, retains it for possible resend, and transmits it
// (spec §6 send_commands).
func (s *session) sendCommands(cmds []command.Outbound) error {
	if len(cmds) == 0 {
		return errInvalidArg
	}
	s.stateMu.Lock()
	v := s.version
	sid := s.sid
	remoteID := s.remoteID
	s.stateMu.Unlock()

	payload := command.EncodeAll(cmds, v)
	if len(payload) > config.MaxPacketSize-packet.HeaderSize {
		return errOversizedBatch
	}

	s.stateMu.Lock()
	s.localID = packet.NextID(s.localID)
	id := s.localID
	s.stateMu.Unlock()

	h := packet.Header{
		Flags:     packet.AckRequest,
		SessionID: sid,
		AckID:     remoteID,
		ID:        id,
	}
	data := packet.Build(h, payload)

	if !s.ringMu.TryLock() {
		return errTimeout
	}
	s.ring.Put(id, data)
	s.ringMu.Unlock()

	return s.send(data)
}

func (s *session) send(data []byte) error {
	if s.metric != nil {
		s.metric.PacketsSent.Inc()
	}
	return s.tp.WriteDatagram(data)
}

// evictThrough drops id and every entry older than it by the ring's size
// or more, mirroring the resend ring's ACK-driven eviction (spec
// §4.4: "evicts any entry older than 32 positions in modular order").
// Entries newer than ackID are kept.
func (r *retentionRing) evictThrough(ackID uint16) {
	delete(r.entries, ackID)
	kept := r.order[:0]
	for _, id := range r.order {
		if id == ackID || (!packet.NewerThan(id, ackID) && packet.Distance(ackID, id) >= uint16(r.cap)) {
			if id != ackID {
				delete(r.entries, id)
			}
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
