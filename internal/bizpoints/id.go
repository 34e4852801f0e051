package bizpoints

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// newTxID generates a collision-resistant ledger transaction id: a typed
// prefix, the millisecond timestamp and a random suffix. Sortable by
// creation time within a millisecond of precision.
func newTxID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("BPT%d%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
