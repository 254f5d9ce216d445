package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// CookieName is the session cookie's name.
const CookieName = "pp_session"

// SignSessionID produces the cookie value: the session id plus an HMAC tag
// over it, so a tampered or guessed id is rejected before ever touching the
// session store.
func SignSessionID(sessionKey, sessionID string) string {
	mac := hmac.New(sha256.New, []byte(sessionKey))
	mac.Write([]byte(sessionID))
	tag := hex.EncodeToString(mac.Sum(nil))
	return sessionID + "." + tag
}

// VerifySessionID validates a cookie value produced by SignSessionID and
// returns the session id it carries.
func VerifySessionID(sessionKey, cookieValue string) (string, bool) {
	parts := strings.SplitN(cookieValue, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	id, tag := parts[0], parts[1]

	mac := hmac.New(sha256.New, []byte(sessionKey))
	mac.Write([]byte(id))
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(tag)) != 1 {
		return "", false
	}
	return id, true
}
