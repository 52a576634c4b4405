package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SessionCookieName is the HTTP-only cookie carrying the signed session.
const SessionCookieName = "stridesense_session"

// SignSession produces the session cookie value for a user: the user ID and
// an HMAC over it, so the server can trust the ID without server-side state.
func SignSession(secret string, userID int32) string {
	payload := strconv.FormatInt(int64(userID), 10)
	return payload + "." + signPayload(secret, payload)
}

// VerifySession checks a cookie value and returns the user ID it names.
func VerifySession(secret, value string) (int32, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return 0, false
	}
	expected := signPayload(secret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return 0, false
	}
	userID, err := strconv.ParseInt(payload, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(userID), true
}

func signPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
