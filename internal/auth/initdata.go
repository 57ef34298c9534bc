// Package auth verifies Telegram Mini App init data: an opaque signed
// payload the client forwards in the Authorization header.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Validation failures stay internal; the middleware collapses them all to
// one 401 so the client cannot probe which check tripped.
var (
	ErrMalformed   = errors.New("auth: malformed init data")
	ErrMissingHash = errors.New("auth: init data has no hash field")
	ErrBadAuthDate = errors.New("auth: missing or malformed auth_date")
	ErrExpired     = errors.New("auth: init data expired")
	ErrSignature   = errors.New("auth: signature mismatch")
)

// signingDomain is the fixed outer HMAC key Telegram uses to derive the
// per-bot signing key from the bot token.
const signingDomain = "WebAppData"

// DefaultMaxAge bounds the replay window for otherwise-valid payloads.
const DefaultMaxAge = 24 * time.Hour

// Fields holds the percent-decoded init-data pairs, minus the hash.
type Fields map[string]string

func (f Fields) User() string { return f["user"] }

type Validator struct {
	secretKey []byte // HMAC-SHA256(signingDomain, botToken)
	maxAge    time.Duration
	now       func() time.Time
}

func NewValidator(botToken string, maxAge time.Duration) *Validator {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	mac := hmac.New(sha256.New, []byte(signingDomain))
	mac.Write([]byte(botToken))
	return &Validator{
		secretKey: mac.Sum(nil),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Validate checks freshness and signature of raw init data. It returns the
// decoded fields only when both checks pass; any failure yields nil fields
// and one of the sentinel errors above.
func (v *Validator) Validate(raw string) (Fields, error) {
	fields, err := parse(raw)
	if err != nil {
		return nil, err
	}

	gotHash, ok := fields["hash"]
	if !ok || gotHash == "" {
		return nil, ErrMissingHash
	}
	delete(fields, "hash")

	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil {
		return nil, ErrBadAuthDate
	}
	if v.now().Unix()-authDate > int64(v.maxAge.Seconds()) {
		return nil, ErrExpired
	}

	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(checkString(fields)))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return nil, ErrSignature
	}
	return fields, nil
}

func parse(raw string) (Fields, error) {
	fields := make(Fields)
	for _, item := range strings.Split(raw, "&") {
		if item == "" {
			continue
		}
		k, val, found := strings.Cut(item, "=")
		if !found {
			return nil, ErrMalformed
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, ErrMalformed
		}
		value, err := url.QueryUnescape(val)
		if err != nil {
			return nil, ErrMalformed
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return nil, ErrMalformed
	}
	return fields, nil
}

// checkString joins the remaining pairs as key=value lines, sorted by key.
func checkString(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}
	return strings.Join(lines, "\n")
}

// --- context helpers ---

type ctxKey int

const keyFields ctxKey = 0

// WithFields attaches validated init-data fields to the context.
func WithFields(ctx context.Context, f Fields) context.Context {
	return context.WithValue(ctx, keyFields, f)
}

// FieldsFrom extracts validated init-data fields (if present).
func FieldsFrom(ctx context.Context) (Fields, bool) {
	f, ok := ctx.Value(keyFields).(Fields)
	return f, ok
}
