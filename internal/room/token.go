package room

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// deriveToken computes the room's authorization token: a hex HMAC-SHA256
// digest of the room id under the per-process secret. The token proves
// prior membership on reconnect; it carries nothing about content.
// The secret is immutable after construction, so no locking is needed.
func (l *Ledger) deriveToken(roomID string) string {
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(roomID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyToken reports whether token is the valid token for roomID.
// hmac.Equal compares in constant time; a length mismatch or any byte
// mismatch fails.
func (l *Ledger) VerifyToken(roomID, token string) bool {
	decoded, err := hex.DecodeString(token)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(roomID))
	return hmac.Equal(decoded, mac.Sum(nil))
}
