package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
)

const (
	// Header format: t=<unix seconds>,v1=<hex hmac-sha256>
	SignatureHeader = "Webhook-Signature"

	DefaultTolerance = 5 * time.Minute

	signatureScheme = "v1"
)

// Verify gateway event signatures
// Signed payload is "<timestamp>.<raw body>"
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// Zero tolerance means default, negative disables timestamp check
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (v *Verifier) Verify(header string, body []byte) error {
	if len(v.secret) == 0 {
		return apperrors.ErrSecretNotSet
	}
	if header == "" {
		return apperrors.ErrSignatureMissing
	}

	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case signatureScheme:
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: no timestamp or signature", apperrors.ErrSignatureInvalid)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", apperrors.ErrSignatureInvalid)
	}

	expected := computeSignature(v.secret, timestamp, body)
	matched := false
	for _, s := range signatures {
		got, err := hex.DecodeString(s)
		if err == nil && hmac.Equal(got, expected) {
			matched = true
			break
		}
	}
	if !matched {
		return apperrors.ErrSignatureInvalid
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(unix, 0))
		if age > v.tolerance || age < -v.tolerance {
			return apperrors.ErrSignatureExpired
		}
	}

	return nil
}

// Build signature header value for body signed at ts
func Sign(secret string, ts time.Time, body []byte) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := computeSignature([]byte(secret), timestamp, body)
	return "t=" + timestamp + "," + signatureScheme + "=" + hex.EncodeToString(mac)
}

func computeSignature(secret []byte, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
