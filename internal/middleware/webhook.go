package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// maxWebhookBody caps the push payload buffered for signature checks.
const maxWebhookBody = 5 << 20

// Webhook header names of the supported code hosts.
const (
	HeaderGitHubSignature = "X-Hub-Signature-256"
	HeaderGiteaSignature  = "X-Gitea-Signature"
	HeaderGitLabToken     = "X-Gitlab-Token"
)

// webhookCheck authenticates one push request. It returns the HTTP status
// and message to reject with, or 0 when the request is genuine.
type webhookCheck func(r *http.Request, body []byte) (int, string)

// WebhookHMAC verifies an HMAC-SHA256 signature of the body carried in
// header. Both "sha256=<hex>" (GitHub) and bare hex (Gitea) are accepted.
func WebhookHMAC(secret, header string) func(http.Handler) http.Handler {
	return webhookAuth(secret != "", true, func(r *http.Request, body []byte) (int, string) {
		sig := r.Header.Get(header)
		if sig == "" {
			return http.StatusUnauthorized, "missing webhook signature"
		}
		if !validSignature(body, sig, secret) {
			return http.StatusForbidden, "invalid webhook signature"
		}
		return 0, ""
	})
}

// WebhookToken compares a shared token sent in header (GitLab).
func WebhookToken(token, header string) func(http.Handler) http.Handler {
	return webhookAuth(token != "", false, func(r *http.Request, _ []byte) (int, string) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(header)), []byte(token)) != 1 {
			return http.StatusForbidden, "invalid " + header + " token"
		}
		return 0, ""
	})
}

// webhookAuth rejects every request with 503 while the credential is
// unset. needBody buffers the payload and replays it to next.
func webhookAuth(configured, needBody bool, check webhookCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !configured {
				writeAuthError(w, http.StatusServiceUnavailable, "webhook secret not configured")
				return
			}

			var body []byte
			if needBody {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
				if err != nil {
					writeAuthError(w, http.StatusBadRequest, "failed to read body")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			if status, msg := check(r, body); status != 0 {
				writeAuthError(w, status, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validSignature(payload []byte, signature, secret string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
