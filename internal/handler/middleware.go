package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const viewerEmailKey contextKey = "viewerEmail"

// viewerClaims is the token payload issued by the identity provider the
// frontend authenticates against. Only the email claim matters here.
type viewerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ViewerIdentity resolves the viewer's email for the disclosure evaluator.
// A valid Bearer token wins; the X-Viewer-Email header and the viewer query
// parameter are accepted as fallbacks. Absent or invalid identity leaves the
// email empty, which the evaluator treats as deny.
func ViewerIdentity(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := ""

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					claims := &viewerClaims{}
					token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
						if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
							return nil, jwt.ErrSignatureInvalid
						}
						return []byte(jwtSecret), nil
					})
					if err == nil && token.Valid {
						email = claims.Email
					} else {
						logger.Warn("viewer token rejected",
							zap.String("path", r.URL.Path),
							zap.Error(err),
						)
					}
				}
			}

			if email == "" {
				email = r.Header.Get("X-Viewer-Email")
			}
			if email == "" {
				email = r.URL.Query().Get("viewer")
			}

			ctx := context.WithValue(r.Context(), viewerEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerEmailFromContext extracts the resolved viewer email. Empty means no
// verified identity.
func ViewerEmailFromContext(ctx context.Context) string {
	v, _ := ctx.Value(viewerEmailKey).(string)
	return v
}

// AdminOnly guards moderation routes. The X-Admin-Key header is checked
// against the configured bcrypt hash, so the plaintext key never lives in
// the service's environment.
func AdminOnly(adminKeyHash string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKeyHash == "" {
				writeError(w, http.StatusServiceUnavailable, "admin access not configured")
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				logger.Warn("admin: missing key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "admin key required")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err != nil {
				logger.Warn("admin: invalid key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
