package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
)

const (
	// csrfNonceLength is the number of random bytes in a token.
	csrfNonceLength = 32

	// CSRFCookieName is the cookie holding the token. Pages read it from JS
	// and echo it in the X-CSRF-Token header.
	CSRFCookieName = "radio_csrf"

	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfContextKey = "csrf_token"
)

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	// Secret signs tokens so a cookie planted by a sibling subdomain is
	// rejected.
	Secret string

	// Exempt lists exact paths that skip validation, e.g. the JSON login
	// endpoint used by scripts that have no cookie yet.
	Exempt []string
}

// CSRF returns middleware implementing the signed double-submit cookie
// pattern on all state-changing requests.
//
//  1. Every response carries a radio_csrf cookie ("nonce.signature").
//  2. POST, PUT and DELETE must echo that exact value in the X-CSRF-Token
//     header (fetch) or the csrf_token form field (HTML forms).
//  3. Mismatching or unsigned tokens are rejected with 403.
func CSRF(cfg CSRFConfig) echo.MiddlewareFunc {
	exempt := make(map[string]bool, len(cfg.Exempt))
	for _, p := range cfg.Exempt {
		exempt[p] = true
	}
	key := []byte(cfg.Secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			var cookieToken string
			if cookie, err := req.Cookie(CSRFCookieName); err == nil && validCSRFToken(key, cookie.Value) {
				cookieToken = cookie.Value
			} else {
				token, err := newCSRFToken(key)
				if err != nil {
					return apperror.NewInternal(err)
				}
				c.SetCookie(&http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // read by the page script
					Secure:   c.Scheme() == "https",
					SameSite: http.SameSiteLaxMode,
				})
				cookieToken = token
			}
			c.Set(csrfContextKey, cookieToken)

			if isSafeMethod(req.Method) || exempt[req.URL.Path] {
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" && !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				submitted = req.FormValue(csrfFormField)
			}

			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return apperror.NewForbidden("invalid or missing CSRF token")
			}
			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// newCSRFToken returns "nonce.signature" in hex.
func newCSRFToken(key []byte) (string, error) {
	b := make([]byte, csrfNonceLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(b)
	return nonce + "." + signCSRF(key, nonce), nil
}

func signCSRF(key []byte, nonce string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

func validCSRFToken(key []byte, token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || len(nonce) != csrfNonceLength*2 {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(signCSRF(key, nonce)))
}

// GetCSRFToken returns the request's CSRF token for embedding in forms.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(csrfContextKey).(string); ok {
		return token
	}
	return ""
}
