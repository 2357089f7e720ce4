package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/validation"
)

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:24]
}

// mintVolunteerID returns the next HC-<year>-<seq> id. Callers hold mu.
func (s *Server) mintVolunteerID() string {
	s.seq++
	return fmt.Sprintf("HC-%d-%04d", s.now().Year(), s.seq)
}

func (s *Server) handleMyStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app := s.apps[s.sessions[sessionFrom(r.Context())]]
	if app == nil {
		writeJSON(w, http.StatusOK, model.MyStatus{Status: model.StatusNone})
		return
	}
	copied := *app
	writeJSON(w, http.StatusOK, model.MyStatus{Status: app.Status, Volunteer: &copied})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var sub model.ApplicationSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid application payload")
		return
	}
	if err := s.validator.Profile(&sub.Profile); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeMessage(w, http.StatusBadRequest, verr.UserMessage())
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid application payload")
		return
	}
	if sub.GovIDImage == "" || sub.ProfilePicture == "" {
		writeMessage(w, http.StatusBadRequest, "Please upload both your ID and profile picture")
		return
	}

	token := sessionFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.apps[s.sessions[token]]
	if existing != nil && !lifecycle.CanApply(existing.Status) {
		writeMessage(w, http.StatusBadRequest, "You have already applied")
		return
	}
	for _, id := range s.order {
		other := s.apps[id]
		if other != existing && strings.EqualFold(other.Email, sub.Email) {
			writeMessage(w, http.StatusBadRequest, "An application with this email already exists")
			return
		}
	}

	var app model.VolunteerApplication
	if existing != nil {
		next, err := lifecycle.Apply(*existing, lifecycle.Decision{Actor: lifecycle.ActorApplicant, To: model.StatusPending})
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		app = next
	} else {
		app = model.VolunteerApplication{
			ID:        newID(),
			Status:    model.StatusPending,
			CreatedAt: s.now().UTC(),
		}
		s.order = append(s.order, app.ID)
	}
	app.Profile = sub.Profile
	app.GovIDImage = sub.GovIDImage
	app.ProfilePicture = sub.ProfilePicture

	s.apps[app.ID] = &app
	s.sessions[token] = app.ID

	s.logger.Debug("Sandbox application submitted", zap.String("id", app.ID), zap.String("email", app.Email))
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProfilePicture string `json:"profilePicture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProfilePicture == "" {
		writeMessage(w, http.StatusBadRequest, "Profile picture URL is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app := s.apps[s.sessions[sessionFrom(r.Context())]]
	if app == nil {
		writeMessage(w, http.StatusNotFound, "No application found")
		return
	}
	app.ProfilePicture = body.ProfilePicture
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleVolunteerUpload(w http.ResponseWriter, r *http.Request) {
	imageURL, ok := s.storeUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, model.AssetReference{URL: imageURL})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("status")
	var want model.Status
	if bucket != "" && bucket != lifecycle.BucketAll {
		status, ok := model.ParseStatus(bucket)
		if !ok || status == model.StatusNone {
			writeMessage(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		want = status
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.VolunteerApplication, 0, len(s.order))
	for _, id := range s.order {
		app := s.apps[id]
		if want == "" || app.Status == want {
			out = append(out, *app)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var change model.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid status payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app := s.apps[id]
	if app == nil {
		writeMessage(w, http.StatusNotFound, "Volunteer not found")
		return
	}

	next, err := lifecycle.Apply(*app, lifecycle.Decision{
		Actor:  lifecycle.ActorAdmin,
		To:     change.Status,
		Reason: change.Reason,
	})
	if err != nil {
		var gerr *lifecycle.GuardError
		if errors.As(err, &gerr) {
			writeMessage(w, http.StatusBadRequest, gerr.UserMessage())
			return
		}
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Cannot change status from %s to %s", app.Status, change.Status))
		return
	}

	if next.Status == model.StatusActive && next.VolunteerID == "" {
		next.VolunteerID = s.mintVolunteerID()
		next.JoiningDate = s.now().UTC().Format("2006-01-02")
		s.logger.Debug("Sandbox volunteer approved",
			zap.String("id", id),
			zap.String("volunteer_id", next.VolunteerID))
	}

	*app = next
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Volunteer not found")
		return
	}
	delete(s.apps, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	for token, appID := range s.sessions {
		if appID == id {
			s.sessions[token] = ""
		}
	}
	writeMessage(w, http.StatusOK, "Volunteer deleted")
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	a, ok := s.assets[name]
	s.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusNotFound, "Asset not found")
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	_, _ = w.Write(a.data)
}

// storeUpload reads the multipart "image" field and returns its public URL.
// On failure it has already written the error response.
func (s *Server) storeUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid upload")
		return "", false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No image uploaded")
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeMessage(w, http.StatusBadRequest, "No image uploaded")
		return "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	name := uuid.New().String() + ext

	s.mu.Lock()
	s.assets[name] = asset{contentType: contentType, data: data}
	s.mu.Unlock()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/assets/%s", scheme, r.Host, name), true
}
