package atem

import "github.com/pkg/errors"

// Sentinel errors returned by SendCommands (spec §6: ok / invalid_arg /
// timeout / io_error). A transport-level failure is wrapped and returned
// as-is rather than folded into one of these, so callers can still
// inspect it with errors.Is/As.
var (
	// ErrInvalidArgument is returned for an empty command batch.
	ErrInvalidArgument = errors.New("atem: empty command batch")

	// ErrOversizedBatch is returned when the encoded batch would not fit
	// in a single packet.
	ErrOversizedBatch = errors.New("atem: command batch exceeds maximum packet size")

	// ErrSendTimeout is returned when the send-retention lock could not
	// be acquired promptly.
	ErrSendTimeout = errors.New("atem: timed out acquiring send-retention lock")

	// ErrStateLockTimeout is returned by Client.Lock when the state lock
	// could not be acquired within config.StateLockBudget.
	ErrStateLockTimeout = errors.New("atem: timed out acquiring state lock")
)

var (
	errInvalidArg     = ErrInvalidArgument
	errOversizedBatch = ErrOversizedBatch
	errTimeout        = ErrSendTimeout
)
