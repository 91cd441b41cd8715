// Package xid mints the engine's record ids. Every id carries a type
// prefix ("sale", "comm", "rule", "prod", "rep", "audit") so a bare id
// in a log line or audit detail is self-describing.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a unique id of the form prefix-nanos-randomhex. The
// timestamp keeps ids roughly sortable by creation; the random suffix
// makes collisions within a nanosecond implausible.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
