package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/utils"
)

// Authenticator turns a bearer token into the signed-in user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, *utils.Claims, error)
}

type contextKey int

const (
	userKey contextKey = iota
	claimsKey
)

// UserFromContext returns the principal JWTAuthMiddleware stored on the
// request.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*utils.Claims)
	return claims, ok
}

// WithUser attaches a principal to ctx.
func WithUser(ctx context.Context, user models.User, claims *utils.Claims) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, claimsKey, claims)
}

func JWTAuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Authorization header missing")
				return
			}

			tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenStr == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_BEARER_PREFIX_MISSING, Description: Bearer prefix missing in Authorization header for request to %s %s", r.Method, r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			user, claims, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token provided for request to %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			logging.Logger.Debugf("Event ID: JWT_AUTH_SUCCESS, Description: User %s (%s) authenticated for %s %s", user.ID, user.Role, r.Method, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, claims)))
		})
	}
}

func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Logger.Infof("Event ID: HTTP_REQUEST, Description: %s %s -> %d in %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
