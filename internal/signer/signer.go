package signer

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSignature = "X-Request-Signature"
	HeaderTimestamp = "X-Request-Timestamp"
)

var (
	ErrMissingCredentials = errors.New("signer: api key and secret are required")
	ErrInvalidSignature   = errors.New("signer: signature mismatch")
	ErrStaleTimestamp     = errors.New("signer: timestamp outside allowed window")
)

type Headers struct {
	APIKey    string
	Signature string
	Timestamp string
}

func (h Headers) Apply(req *http.Request) {
	req.Header.Set(HeaderAPIKey, h.APIKey)
	req.Header.Set(HeaderSignature, h.Signature)
	req.Header.Set(HeaderTimestamp, h.Timestamp)
}

type Signer struct {
	apiKey string
	secret []byte
	now    func() time.Time
}

func New(apiKey, secret string) (*Signer, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(secret) == "" {
		return nil, ErrMissingCredentials
	}
	return &Signer{apiKey: apiKey, secret: []byte(secret), now: time.Now}, nil
}

func (s *Signer) Sign(method, path string, body []byte) (Headers, error) {
	return s.SignAt(method, path, body, s.now())
}

// SignAt signs with a fixed timestamp. path may be a full URL; only its path
// component takes part in the signature.
func (s *Signer) SignAt(method, path string, body []byte, at time.Time) (Headers, error) {
	if s == nil || s.apiKey == "" || len(s.secret) == 0 {
		return Headers{}, ErrMissingCredentials
	}
	ts := strconv.FormatInt(at.Unix(), 10)
	canonical, err := CanonicalString(method, path, ts, body)
	if err != nil {
		return Headers{}, err
	}
	return Headers{
		APIKey:    s.apiKey,
		Signature: s.mac(canonical),
		Timestamp: ts,
	}, nil
}

// Verify checks a signature produced by a peer sharing the same secret.
// A zero maxSkew disables the timestamp window check.
func (s *Signer) Verify(method, path, timestamp, signature string, body []byte, maxSkew time.Duration) error {
	if s == nil || len(s.secret) == 0 {
		return ErrMissingCredentials
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrStaleTimestamp, timestamp)
	}
	if maxSkew > 0 {
		delta := s.now().Sub(time.Unix(unix, 0))
		if delta < 0 {
			delta = -delta
		}
		if delta > maxSkew {
			return ErrStaleTimestamp
		}
	}
	canonical, err := CanonicalString(method, path, timestamp, body)
	if err != nil {
		return err
	}
	expected := s.mac(canonical)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) mac(canonical string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// CanonicalString builds METHOD\nPATH\nTIMESTAMP, followed by \nBODY for
// POST and PUT requests that carry a body. JSON bodies are compacted.
func CanonicalString(method, path, timestamp string, body []byte) (string, error) {
	method = strings.ToUpper(method)
	p, err := pathOnly(path)
	if err != nil {
		return "", err
	}
	canonical := method + "\n" + p + "\n" + timestamp
	if (method == http.MethodPost || method == http.MethodPut) && len(body) > 0 {
		compact, err := CompactJSON(body)
		if err != nil {
			return "", err
		}
		canonical += "\n" + string(compact)
	}
	return canonical, nil
}

func CompactJSON(body []byte) ([]byte, error) {
	if !json.Valid(body) {
		return body, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pathOnly(raw string) (string, error) {
	if raw == "" {
		return "/", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("signer: parse path: %w", err)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}
