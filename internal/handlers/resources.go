package handlers

import (
	"net/http"

	"camp-companion/internal/resources"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// maxUploadSize caps resource uploads at 32 MB
const maxUploadSize = 32 << 20

// ResourceHandler handles resource HTTP requests
type ResourceHandler struct {
	resources *resources.Service
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(resources *resources.Service) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// GetResources handles GET /api/v1/resources
func (h *ResourceHandler) GetResources(w http.ResponseWriter, r *http.Request) {
	list := h.resources.Resources()
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := list[:0]
		for _, res := range list {
			if res.Category == category {
				filtered = append(filtered, res)
			}
		}
		list = filtered
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"resources": list,
	})
}

// RefreshResources handles POST /api/v1/resources/refresh
func (h *ResourceHandler) RefreshResources(w http.ResponseWriter, r *http.Request) {
	list, err := h.resources.Refresh(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh resources")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"resources": list,
	})
}

// UploadResource handles POST /api/v1/resources
//
// Expects multipart form data with a "file" part and name, description and
// category form fields.
func (h *ResourceHandler) UploadResource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := h.resources.Upload(
		r.Context(),
		r.FormValue("name"),
		r.FormValue("description"),
		r.FormValue("category"),
		contentType,
		header.Filename,
		header.Size,
		file,
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("filename", header.Filename).
			Msg("Failed to upload resource")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

// DeleteResource handles DELETE /api/v1/resources/{resource_id}
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resource_id")
	if err := h.resources.Delete(r.Context(), resourceID); err != nil {
		log.Error().Err(err).Str("resource_id", resourceID).Msg("Failed to delete resource")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
