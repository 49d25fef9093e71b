// Package receipt resolves a receipt from page query parameters and turns
// it into a printable view.
package receipt

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"markket/internal/normalize"
)

// State is the outcome of a resolution.
type State int

const (
	// StateEmpty means no receipt was provided. It is not an error.
	StateEmpty State = iota
	// StateLoaded means Record holds a normalized receipt.
	StateLoaded
	// StateError means a session was given but no record could be fetched.
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "empty"
	}
}

// User-facing messages per state.
const (
	MsgEmpty        = "No receipt data detected."
	MsgSessionEmpty = "No receipt data returned from server for this session."
)

var (
	sessionParams = []string{"session_id", "session", "sid"}
	payloadParams = []string{"receipt", "data", "r", "payload"}
)

// SessionLookup fetches the raw order payload of a checkout session. A nil
// payload with no error means the server had nothing for the session.
type SessionLookup interface {
	LookupReceipt(ctx context.Context, sessionID string) ([]byte, error)
}

// Result is the resolved receipt state.
type Result struct {
	State   State
	Source  string // "session" or "inline" when loaded
	Record  normalize.Receipt
	Message string
}

// Resolver turns query parameters into a receipt.
type Resolver struct {
	Lookup SessionLookup
	Logger *slog.Logger
}

// Resolve tries a session lookup first, then an inline payload. It makes at
// most one lookup and never retries.
func (r *Resolver) Resolve(ctx context.Context, q url.Values) Result {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if sid := firstParam(q, sessionParams); sid != "" {
		if r.Lookup == nil {
			logger.Error("receipt session given but no lookup configured", "session", sid)
			return Result{State: StateError, Message: MsgSessionEmpty}
		}
		raw, err := r.Lookup.LookupReceipt(ctx, sid)
		if err != nil || len(raw) == 0 {
			logger.Warn("no receipt for session", "session", sid, "err", err)
			return Result{State: StateError, Message: MsgSessionEmpty}
		}
		return Result{State: StateLoaded, Source: "session", Record: normalize.NormalizeReceipt(raw)}
	}

	if raw := firstParam(q, payloadParams); raw != "" {
		if payload, ok := DecodeInline(raw); ok {
			return Result{State: StateLoaded, Source: "inline", Record: normalize.NormalizeReceipt(payload)}
		}
		logger.Info("receipt payload could not be decoded")
	}
	return Result{State: StateEmpty, Message: MsgEmpty}
}

func firstParam(q url.Values, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeInline reads an inline receipt payload: percent-encoded JSON first,
// then base64 JSON. Only JSON objects are accepted.
func DecodeInline(raw string) ([]byte, bool) {
	if s, err := url.PathUnescape(raw); err == nil && isObject(s) {
		return []byte(s), true
	}
	// Query parsing turns an unescaped '+' into a space.
	b64 := strings.ReplaceAll(raw, " ", "+")
	for _, enc := range base64Encodings {
		if b, err := enc.DecodeString(b64); err == nil && isObject(string(b)) {
			return b, true
		}
	}
	return nil, false
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

// ParseQuery accepts a full URL, a "?a=b" query or a bare "a=b" query.
func ParseQuery(s string) (url.Values, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse receipt url: %w", err)
		}
		return u.Query(), nil
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[i+1:]
	}
	q, err := url.ParseQuery(s)
	if err != nil {
		return nil, fmt.Errorf("parse receipt query: %w", err)
	}
	return q, nil
}
