package sandbox

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const sessionKey ctxKey = iota

// sessionCookie matches the cookie name the API client sends
const sessionCookie = "token"

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		s.logger.Debug("Sandbox request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID))

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reservation := s.limiter.Reserve()
		if !reservation.OK() {
			w.Header().Set("Retry-After", "1")
			writeMessage(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			secs := int(delay.Seconds())
			if float64(secs) < delay.Seconds() {
				secs++
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeMessage(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAdmin(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && token != "" && token == s.adminToken
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			writeMessage(w, http.StatusUnauthorized, "Not authorized as an admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) applicantOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Please log in to continue")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) anyCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) && sessionToken(r) == "" {
			writeMessage(w, http.StatusUnauthorized, "Please log in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(ctx context.Context) string {
	token, _ := ctx.Value(sessionKey).(string)
	return token
}
