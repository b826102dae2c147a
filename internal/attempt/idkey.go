package attempt

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// IDFromKey derives a stable attempt id from a client idempotency key. The same
// (userID, key) pair always yields the same id; different users never collide
// on a shared key.
func IDFromKey(userID, key string) string {
	buf := binary.AppendUvarint(nil, uint64(len(userID)))
	buf = append(buf, userID...)
	buf = append(buf, key...)
	sum := blake2b.Sum256(buf)
	return "idem-" + hex.EncodeToString(sum[:16])
}

// NewID returns a fresh random attempt id.
func NewID() string {
	return uuid.NewString()
}
