package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/medrec-backend/api/responses"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
)

// WindowCounter counts attempts per scope in fixed windows.
type WindowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// identity payloads larger than this are not inspected
const maxIdentityBody = 64 << 10

// AuthRateLimitPolicy throttles one anonymous auth surface (login, register,
// password reset) per client IP and per submitted account name.
type AuthRateLimitPolicy struct {
	name          string
	window        time.Duration
	ipLimit       int64
	identityLimit int64
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identityLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:          name,
		window:        window,
		ipLimit:       int64(ipLimit),
		identityLimit: int64(identityLimit),
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identityLimit > 0)
}

type limitCheck struct {
	kind  string
	value string
	limit int64
}

func (p AuthRateLimitPolicy) scope(c limitCheck) string {
	return p.name + ":" + c.kind + ":" + c.value
}

// AuthRateLimit rejects requests with 429 once either counter of policy is
// exhausted. The request body is restored for the next handler.
func AuthRateLimit(policy AuthRateLimitPolicy, counter WindowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || counter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks := make([]limitCheck, 0, 2)
			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				checks = append(checks, limitCheck{kind: "ip", value: ip, limit: policy.ipLimit})
			}
			if policy.identityLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxIdentityBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if identity := normalizeIdentity(extractIdentity(body)); identity != "" {
					checks = append(checks, limitCheck{kind: "id", value: hashValue(identity), limit: policy.identityLimit})
				}
			}

			for _, c := range checks {
				allowed, count, err := counter.FixedWindowAllow(ctx, policy.scope(c), c.limit, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, c, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, c limitCheck, count int64) {
	if logg != nil {
		fields := map[string]any{
			"scope":          c.kind,
			"policy":         policy.name,
			"attempts":       count,
			"limit":          c.limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if c.kind == "ip" {
			fields["ip"] = c.value
		} else {
			fields["identity_hash"] = c.value
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.FormatInt(int64(policy.window.Seconds()), 10))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// extractIdentity prefers the email field and falls back to username so login
// by either identifier shares one counter per account name.
func extractIdentity(payload []byte) string {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if strings.TrimSpace(body.Email) != "" {
		return body.Email
	}
	return body.Username
}

func normalizeIdentity(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
