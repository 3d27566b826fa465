package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Hasher derives rotating visitor and session pseudonyms. The inputs are
// digested and truncated; neither the IP nor the user agent is ever stored.
type Hasher struct {
	salt string
}

// NewHasher returns a Hasher using the given server-side salt. An empty salt
// is valid and keeps the derivation deterministic.
func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt}
}

// VisitorID derives the visitor pseudonym for the current UTC calendar day.
// The identifier rotates at day boundaries.
func (h *Hasher) VisitorID(siteID, ip, ua string, now time.Time) string {
	return h.token(siteID, ip, ua, now.UTC().Format("2006-01-02"))
}

// SessionID derives the session pseudonym for the current UTC calendar hour.
func (h *Hasher) SessionID(siteID, ip, ua string, now time.Time) string {
	return h.token(siteID, ip, ua, now.UTC().Format("2006-01-02T15"))
}

// token is a one-way sha256 digest truncated to 16 hex characters (~64 bits).
func (h *Hasher) token(siteID, ip, ua, bucket string) string {
	hasher := sha256.New()
	hasher.Write([]byte(h.salt))
	hasher.Write([]byte(siteID))
	hasher.Write([]byte(ip))
	hasher.Write([]byte(ua))
	hasher.Write([]byte(bucket))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
