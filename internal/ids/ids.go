// Package ids generates entity identifiers and bearer tokens.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 12

// New returns an opaque identifier: a base-36 millisecond timestamp followed by a
// random base-36 suffix. Collisions are not detected by callers.
func New() string {
	return newAt(time.Now())
}

func newAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 36) + randomSuffix()
}

func randomSuffix() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(36)
	if len(s) > suffixLen {
		s = s[len(s)-suffixLen:]
	}
	for len(s) < suffixLen {
		s = "0" + s
	}
	return s
}

// Token returns 32 random bytes hex-encoded.
func Token() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
