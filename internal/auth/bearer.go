// Package auth implements session/bearer authentication, the OAuth login
// flow, the auth-endpoint rate limiter, and the admin guard.
package auth

import "crypto/subtle"

// CheckBearer compares candidate against token in constant time so the
// comparison cannot leak the token's length or contents through timing.
func CheckBearer(token, candidate string) bool {
	if len(token) != len(candidate) {
		// Still do a constant-time compare against a same-length buffer so
		// the early return doesn't itself leak length through a timing
		// side-channel distinguishable from the equal-length case.
		subtle.ConstantTimeCompare([]byte(token), []byte(token))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1
}
