package auth

import "testing"

func TestCheckBearerMatchesEqualTokens(t *testing.T) {
	if !CheckBearer("s3cr3t-token", "s3cr3t-token") {
		t.Fatal("expected matching tokens to pass")
	}
}

func TestCheckBearerRejectsDifferentLength(t *testing.T) {
	if CheckBearer("short", "a-much-longer-candidate") {
		t.Fatal("expected different-length tokens to fail")
	}
}

func TestCheckBearerRejectsSameLengthMismatch(t *testing.T) {
	if CheckBearer("aaaaaaaa", "bbbbbbbb") {
		t.Fatal("expected same-length mismatched tokens to fail")
	}
}

func TestCheckBearerRejectsEmptyCandidate(t *testing.T) {
	if CheckBearer("token", "") {
		t.Fatal("expected empty candidate to fail against a non-empty token")
	}
}
