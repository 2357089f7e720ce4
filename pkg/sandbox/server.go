// Package sandbox is an in-memory stand-in for the Humanity Calls REST API.
// It implements the same endpoints and error shapes so the CLI and its tests can
// exercise the full volunteer workflow without a deployed backend.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/validation"
)

// DefaultAdminToken is accepted as the admin bearer token unless WithAdminToken overrides it
const DefaultAdminToken = "sandbox-admin"

// maxUploadBytes bounds a single multipart upload
const maxUploadBytes = 10 << 20

type asset struct {
	contentType string
	data        []byte
}

// Server holds every record in memory. All handlers serialise on mu.
type Server struct {
	mu       sync.Mutex
	apps     map[string]*model.VolunteerApplication
	order    []string
	sessions map[string]string
	gallery  []*model.GalleryImage
	assets   map[string]asset
	seq      int
	gallSeq  int

	adminToken string
	now        func() time.Time
	limiter    *rate.Limiter
	validator  *validation.Validator
	logger     *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithAdminToken sets the bearer token admin endpoints require
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// WithClock replaces time.Now for minted ids, joining dates and age checks
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit answers 429 with a Retry-After header once more than burst
// requests arrive faster than rps per second
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an empty sandbox
func NewServer(opts ...Option) *Server {
	s := &Server{
		apps:       make(map[string]*model.VolunteerApplication),
		sessions:   make(map[string]string),
		assets:     make(map[string]asset),
		adminToken: DefaultAdminToken,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = validation.New(s.now)
	return s
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Route("/volunteers", func(r chi.Router) {
		r.With(s.applicantOnly).Get("/my-status", s.handleMyStatus)
		r.With(s.applicantOnly).Post("/apply", s.handleApply)
		r.With(s.applicantOnly).Patch("/my-profile-picture", s.handleProfilePicture)
		r.With(s.anyCredential).Post("/upload", s.handleVolunteerUpload)

		r.With(s.adminOnly).Get("/", s.handleList)
		r.With(s.adminOnly).Put("/status/{id}", s.handleStatus)
		r.With(s.adminOnly).Delete("/{id}", s.handleDelete)
	})

	r.Route("/gallery", func(r chi.Router) {
		r.Get("/", s.handleGalleryList)
		r.With(s.adminOnly).Post("/upload", s.handleGalleryUpload)
		r.With(s.adminOnly).Put("/{id}", s.handleGalleryUpdate)
		r.With(s.adminOnly).Delete("/{id}", s.handleGalleryDelete)
	})

	r.Get("/assets/{name}", s.handleAsset)

	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("Sandbox API listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sandbox server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sandbox server: %w", err)
		}
		return nil
	}
}

// SeedApplication stores app as if it had been submitted and approved elsewhere.
// It is used to rehearse admin flows against a populated roster.
func (s *Server) SeedApplication(app model.VolunteerApplication) model.VolunteerApplication {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = newID()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = s.now().UTC()
	}
	stored := app
	if _, exists := s.apps[app.ID]; !exists {
		s.order = append(s.order, app.ID)
	}
	s.apps[app.ID] = &stored
	return stored
}

// Session binds an applicant session token to an existing application id,
// or to no application when id is empty
func (s *Server) Session(token, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = id
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
