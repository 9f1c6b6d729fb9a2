// Package rand provides the random and pseudo-unique identifiers the client
// needs outside of the wire protocol itself (the protocol's own IDs are
// sequential, not random).
package rand

import (
	"github.com/google/uuid"
)

// GenerateInstanceID returns a UUID in string format, used only to correlate
// log lines across goroutines for a single client instance. It never
// appears on the wire.
func GenerateInstanceID() string {
	return uuid.NewString()
}
