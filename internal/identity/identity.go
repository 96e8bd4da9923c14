// Package identity derives a stable voter identity for every request:
// the durable user id for authenticated requests, or a hashed anonymous id
// persisted in a long-lived cookie for everyone else.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the cookie carrying the anonymous id.
	CookieName = "anonymousId"

	// AnonPrefix marks ids that belong to unauthenticated visitors.
	AnonPrefix = "anon_"

	cookieMaxAge = 365 * 24 * 60 * 60 // 1 year

	contextKey = "identity"
)

// Identity is either an authenticated principal's durable id or a derived
// anonymous id. Both the vote ledger and the spam gate consume it uniformly.
type Identity struct {
	ID            string
	Authenticated bool
}

// Resolve returns the voter identity for a request, synthesizing and
// persisting an anonymous id when needed. It never fails; missing inputs
// fall back to sentinel values.
func Resolve(c *gin.Context, production bool) Identity {
	if userID, ok := authenticatedUserID(c); ok {
		return Identity{ID: userID, Authenticated: true}
	}

	if cookie, err := c.Cookie(CookieName); err == nil && ValidAnonymousID(cookie) {
		return Identity{ID: cookie}
	}

	id := generateAnonymousID(c)
	c.SetSameSite(gin.SameSiteStrictMode)
	c.SetCookie(CookieName, id, cookieMaxAge, "/", "", production, true)
	return Identity{ID: id}
}

// FromContext returns the identity resolved by the middleware for this
// request, if any.
func FromContext(c *gin.Context) (Identity, bool) {
	raw, exists := c.Get(contextKey)
	if !exists {
		return Identity{}, false
	}
	ident, ok := raw.(Identity)
	return ident, ok
}

// Middleware resolves the voter identity once per request and attaches it
// to the gin context. It must run after the auth middleware so that
// authenticated requests skip the cookie entirely.
func Middleware(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, Resolve(c, production))
		c.Next()
	}
}

// ValidAnonymousID rejects tampered or truncated cookies; the caller
// replaces them with a fresh id.
func ValidAnonymousID(id string) bool {
	return strings.HasPrefix(id, AnonPrefix) && len(id) > 20
}

func authenticatedUserID(c *gin.Context) (string, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	switch v := raw.(type) {
	case int:
		return strconv.Itoa(v), true
	case uint:
		return strconv.Itoa(int(v)), true
	case float64:
		return strconv.Itoa(int(v)), true
	case string:
		return v, true
	default:
		return "", false
	}
}

// generateAnonymousID combines multiple request factors with randomness,
// hashes them and keeps the first 16 hex characters.
func generateAnonymousID(c *gin.Context) string {
	factors := []string{
		fallback(RemoteIP(c), "unknown-ip"),
		fallback(c.GetHeader("User-Agent"), "unknown-agent"),
		fallback(c.GetHeader("Accept-Language"), "unknown-lang"),
		strconv.FormatInt(time.Now().UnixMilli(), 10),
		randomHex(8),
	}

	sum := sha256.Sum256([]byte(strings.Join(factors, "-")))
	return AnonPrefix + hex.EncodeToString(sum[:])[:16]
}

// Fingerprint builds a stable hash from request headers and the client IP,
// for correlating anonymous visitors whose cookies were cleared. Fields are
// sorted so header order never changes the result.
func Fingerprint(c *gin.Context) string {
	fields := map[string]string{
		"userAgent":      c.GetHeader("User-Agent"),
		"acceptLanguage": c.GetHeader("Accept-Language"),
		"acceptEncoding": c.GetHeader("Accept-Encoding"),
		"ip":             RemoteIP(c),
		"dnt":            c.GetHeader("DNT"),
	}

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, fields[k]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// RemoteIP resolves the client address, preferring the direct connection,
// then the first X-Forwarded-For entry, then X-Real-IP.
func RemoteIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return c.GetHeader("X-Real-IP")
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure leaves the timestamp as the only entropy
		// source, which still produces a usable id.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf)
}
