package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func expectedSignature(secret, canonical string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func TestNewRequiresCredentials(t *testing.T) {
	cases := []struct{ key, secret string }{
		{"", "secret"},
		{"key", ""},
		{"  ", "secret"},
	}
	for _, tc := range cases {
		if _, err := New(tc.key, tc.secret); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("expected missing credentials for %#v, got %v", tc, err)
		}
	}
}

func TestSignAtPostIncludesCompactBody(t *testing.T) {
	s, err := New("key-1", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := time.Unix(1700000000, 0)
	headers, err := s.SignAt("POST", "https://open-api.mobee.io/v1/wallets/fiat-deposits?x=1", []byte(`{"amount": 15000, "bank_code": "BNI"}`), at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := expectedSignature("secret", "POST\n/v1/wallets/fiat-deposits\n1700000000\n{\"amount\":15000,\"bank_code\":\"BNI\"}")
	if headers.Signature != want {
		t.Fatalf("unexpected signature %s, want %s", headers.Signature, want)
	}
	if headers.Timestamp != "1700000000" || headers.APIKey != "key-1" {
		t.Fatalf("unexpected headers: %#v", headers)
	}
}

func TestSignAtGetIgnoresBody(t *testing.T) {
	s, _ := New("key-1", "secret")
	at := time.Unix(1700000000, 0)
	withBody, err := s.SignAt("GET", "/v1/wallets/balances", []byte(`{"currency":"BTC"}`), at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	without, _ := s.SignAt("GET", "/v1/wallets/balances", nil, at)
	if withBody.Signature != without.Signature {
		t.Fatalf("GET signature must not depend on body")
	}
	if withBody.Signature != expectedSignature("secret", "GET\n/v1/wallets/balances\n1700000000") {
		t.Fatalf("unexpected GET signature")
	}
}

func TestSignDeterministicAndTimestampSensitive(t *testing.T) {
	s, _ := New("key-1", "secret")
	body := []byte(`{"currency":"USDT","amount":18.5}`)
	a, _ := s.SignAt("POST", "/v1/wallets/crypto-withdrawals", body, time.Unix(100, 0))
	b, _ := s.SignAt("POST", "/v1/wallets/crypto-withdrawals", body, time.Unix(100, 0))
	c, _ := s.SignAt("POST", "/v1/wallets/crypto-withdrawals", body, time.Unix(101, 0))
	if a != b {
		t.Fatalf("expected deterministic signature")
	}
	if a.Signature == c.Signature {
		t.Fatalf("expected different signature for different timestamp")
	}
}

func TestSignUsesClock(t *testing.T) {
	s, _ := New("key-1", "secret")
	s.now = func() time.Time { return time.Unix(42, 0) }
	headers, err := s.Sign("PUT", "/v1/x", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if headers.Timestamp != "42" {
		t.Fatalf("unexpected timestamp %s", headers.Timestamp)
	}
}

func TestHeadersApply(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/x", nil)
	Headers{APIKey: "k", Signature: "s", Timestamp: "1"}.Apply(req)
	if req.Header.Get(HeaderAPIKey) != "k" || req.Header.Get(HeaderSignature) != "s" || req.Header.Get(HeaderTimestamp) != "1" {
		t.Fatalf("unexpected headers: %#v", req.Header)
	}
}

func TestVerify(t *testing.T) {
	s, _ := New("key-1", "secret")
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }
	body := []byte(`{"id":"dep-1","status":"completed"}`)
	headers, _ := s.SignAt("POST", "/callbacks/exchange", body, now.Add(-time.Minute))

	if err := s.Verify("POST", "/callbacks/exchange", headers.Timestamp, headers.Signature, body, 5*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Verify("POST", "/callbacks/exchange", headers.Timestamp, headers.Signature, []byte(`{"id":"dep-2"}`), 5*time.Minute); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if err := s.Verify("POST", "/callbacks/exchange", headers.Timestamp, headers.Signature, body, 30*time.Second); !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected stale timestamp, got %v", err)
	}
	if err := s.Verify("POST", "/callbacks/exchange", "abc", headers.Signature, body, 0); !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected timestamp parse failure, got %v", err)
	}
}
