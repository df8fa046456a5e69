package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shoplink/bva-backend/api/responses"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
	pkgredis "github.com/shoplink/bva-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

type idempotencyRule struct {
	method  string
	exact   string
	prefix  string
	suffix  string
	ttl     time.Duration
}

func (rule idempotencyRule) matches(method, pattern string) bool {
	if rule.method != method {
		return false
	}
	if rule.exact != "" {
		return pattern == rule.exact
	}
	return strings.HasPrefix(pattern, rule.prefix) && strings.HasSuffix(pattern, rule.suffix)
}

// Shop-link confirmations keep their replay window for a week; everything
// else gets a day.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, exact: "/api/users/register", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/integrations", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/integrations/", suffix: "/sync", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/products", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/shops/sync", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/ads/generate", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/handshake/", suffix: "/confirm", ttl: criticalIdempotencyTTL},
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.matches(method, pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays stored responses for mutating endpoints when the same
// Idempotency-Key comes back with the same request body. A reused key with a
// different body is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guard := idempotencyGuard{store: store, logg: logg}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, gated := routeTTL(r.Method, routePattern(r))
			if !gated || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			guard.handle(w, r, next, ttl)
		})
	}
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

func (g idempotencyGuard) handle(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	requestHash := hashBody(body)
	storeKey := g.store.IdempotencyKey(requestScope(r), key)

	if done := g.replay(w, r, storeKey, requestHash); done {
		return
	}

	rec := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(rec, r)
	g.persist(r, storeKey, requestHash, rec, ttl)
}

// replay serves a previously stored response if one exists. Returns true
// when the request was fully handled here.
func (g idempotencyGuard) replay(w http.ResponseWriter, r *http.Request, storeKey, requestHash string) bool {
	stored, err := g.store.Get(r.Context(), storeKey)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return true
	}
	if stored == "" {
		return false
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return true
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return true
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
	return true
}

func (g idempotencyGuard) persist(r *http.Request, storeKey, requestHash string, rec *responseCapture, ttl time.Duration) {
	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	record := idempotencyRecord{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := rec.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		if g.logg != nil {
			g.logg.Error(r.Context(), "marshal idempotency record", err)
		}
		return
	}
	if _, err := g.store.SetNX(r.Context(), storeKey, string(payload), ttl); err != nil && g.logg != nil {
		g.logg.Error(r.Context(), "persist idempotency record", err)
	}
}

// requestScope ties stored responses to the caller's identity, so two users
// sharing a key never see each other's responses.
func requestScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()),
		ShopIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
