package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/taskalign/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyBody   = 1 << 20
	idempotencyPrefix    = "idem:"
)

// replayHeaders are restored on a replayed response.
var replayHeaders = []string{"Content-Type", headerRequestID}

type idempotencyEntry struct {
	Fingerprint string              `json:"fingerprint"`
	StatusCode  int                 `json:"status_code"`
	Headers     map[string][]string `json:"headers"`
	Body        []byte              `json:"body"`
}

// Idempotency replays the stored response of a successful POST carrying
// the same Idempotency-Key. A key reused with a different request body is
// rejected with 422 so a retry never returns the report of another
// repository. Only 2xx responses are stored; failed verifications can be
// retried under the same key.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerIdempotencyKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBody+1))
			if err != nil {
				writeAuthError(w, http.StatusBadRequest, "failed to read body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintOf(r.URL.Path, body)
			cacheKey := idempotencyPrefix + r.URL.Path + ":" + key

			cached, ok, err := cache.GetJSON[idempotencyEntry](ctx, c, cacheKey)
			if err != nil {
				slog.WarnContext(ctx, "idempotency lookup failed", "key", key, "error", err)
			}
			if ok {
				if cached.Fingerprint != fingerprint {
					writeAuthError(w, http.StatusUnprocessableEntity, "Idempotency-Key reused with a different request")
					return
				}
				for k, vals := range cached.Headers {
					w.Header()[k] = vals
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 || rec.body.Len() > maxIdempotencyBody {
				return
			}
			entry := idempotencyEntry{
				Fingerprint: fingerprint,
				StatusCode:  rec.statusCode,
				Headers:     map[string][]string{},
				Body:        rec.body.Bytes(),
			}
			for _, h := range replayHeaders {
				if v := w.Header().Values(h); len(v) > 0 {
					entry.Headers[h] = v
				}
			}
			if err := cache.SetJSON(ctx, c, cacheKey, entry, ttl); err != nil {
				slog.WarnContext(ctx, "idempotency store failed", "key", key, "error", err)
			}
		})
	}
}

func fingerprintOf(path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(bytes.TrimSpace(body))
	return hex.EncodeToString(h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
