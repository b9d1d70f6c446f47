package auth

import (
	"strings"
	"testing"
)

func TestSessionTokenDigestIsStable(t *testing.T) {
	token, digest, err := NewSessionToken()
	if err != nil {
		t.Fatalf("new session token: %v", err)
	}
	if token == "" || digest == "" {
		t.Fatal("empty token or digest")
	}
	if token == digest {
		t.Fatal("digest must differ from token")
	}
	if DigestSessionToken(token) != digest {
		t.Fatal("digest not reproducible from token")
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		token, _, err := NewSessionToken()
		if err != nil {
			t.Fatalf("new session token: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := NewCookieCodec([]byte("0123456789abcdef0123456789abcdef"))

	value := codec.EncodeToken("token-abc")
	if !strings.Contains(value, ".") {
		t.Fatalf("expected signed value, got %q", value)
	}

	got, ok := codec.DecodeToken(value)
	if !ok || got != "token-abc" {
		t.Fatalf("decode: got %q ok=%v", got, ok)
	}
}

func TestCookieCodecRejectsTampering(t *testing.T) {
	codec := NewCookieCodec([]byte("0123456789abcdef0123456789abcdef"))
	value := codec.EncodeToken("token-abc")

	tampered := strings.Replace(value, "token-abc", "token-abd", 1)
	if _, ok := codec.DecodeToken(tampered); ok {
		t.Fatal("tampered cookie accepted")
	}

	if _, ok := codec.DecodeToken("no-signature"); ok {
		t.Fatal("unsigned cookie accepted")
	}

	other := NewCookieCodec([]byte("ffffffffffffffffffffffffffffffff"))
	if _, ok := other.DecodeToken(value); ok {
		t.Fatal("cookie signed with different secret accepted")
	}
}
