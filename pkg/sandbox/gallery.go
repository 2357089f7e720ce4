package sandbox

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

func (s *Server) handleGalleryList(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.GalleryImage, 0, len(s.gallery))
	for _, img := range s.gallery {
		if projectID == "" || img.ProjectID == projectID {
			out = append(out, *img)
		}
	}
	slices.SortStableFunc(out, func(a, b model.GalleryImage) int { return a.Order - b.Order })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGalleryUpload(w http.ResponseWriter, r *http.Request) {
	imageURL, ok := s.storeUpload(w, r)
	if !ok {
		return
	}

	projectID := strings.TrimSpace(r.FormValue("projectId"))
	eventDate := strings.TrimSpace(r.FormValue("eventDate"))
	if projectID == "" || eventDate == "" {
		writeMessage(w, http.StatusBadRequest, "Project and event date are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gallSeq++
	img := &model.GalleryImage{
		ID:        newID(),
		ProjectID: projectID,
		EventDate: eventDate,
		ImageURL:  imageURL,
		Order:     s.gallSeq,
	}
	s.gallery = append(s.gallery, img)
	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) handleGalleryUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update model.GalleryUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid gallery update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.gallery, func(img *model.GalleryImage) bool { return img.ID == id })
	if idx < 0 {
		writeMessage(w, http.StatusNotFound, "Image not found")
		return
	}
	img := s.gallery[idx]
	if update.ProjectID != "" {
		img.ProjectID = update.ProjectID
	}
	if update.EventDate != "" {
		img.EventDate = update.EventDate
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleGalleryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.gallery, func(img *model.GalleryImage) bool { return img.ID == id })
	if idx < 0 {
		writeMessage(w, http.StatusNotFound, "Image not found")
		return
	}
	s.gallery = slices.Delete(s.gallery, idx, idx+1)
	writeMessage(w, http.StatusOK, "Image deleted")
}
