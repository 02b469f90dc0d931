package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/gesture"
	"github.com/ayusman/signscribe/internal/store"
)

// TemplateSet is a classifier whose templates can be replaced while it runs.
type TemplateSet interface {
	SetTemplates(templates []*gesture.Template)
}

// ReloadTemplates loads every stored template into set.
func ReloadTemplates(s *store.Store, set TemplateSet) error {
	stored, err := s.Templates().List()
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	templates := make([]*gesture.Template, 0, len(stored))
	for _, t := range stored {
		templates = append(templates, &gesture.Template{
			ID:       t.ID,
			Symbol:   gesture.Symbol(t.Symbol),
			Features: gesture.Vector(t.Features),
		})
	}
	set.SetTemplates(templates)
	return nil
}

// TemplateHandler handles HTTP requests for classifier templates. Every
// change is pushed into the live classifier when one is configured.
type TemplateHandler struct {
	store *store.Store
	live  TemplateSet
}

// NewTemplateHandler creates a TemplateHandler. live may be nil.
func NewTemplateHandler(s *store.Store, live TemplateSet) *TemplateHandler {
	return &TemplateHandler{store: s, live: live}
}

// createTemplateRequest carries either a ready feature vector or the raw
// landmarks of one hand, which are normalized on the way in.
type createTemplateRequest struct {
	Symbol    string             `json:"symbol"`
	Features  []float64          `json:"features"`
	Landmarks []detector.Point2D `json:"landmarks"`
}

type listTemplatesResponse struct {
	Templates []*store.Template `json:"templates"`
}

// ServeHTTP routes /api/templates and /api/templates/{id}.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/templates"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// list handles GET /api/templates, optionally filtered by ?symbol=.
func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		templates []*store.Template
		err       error
	)
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		templates, err = h.store.Templates().ListBySymbol(symbol)
	} else {
		templates, err = h.store.Templates().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	if templates == nil {
		templates = []*store.Template{}
	}
	writeJSON(w, http.StatusOK, listTemplatesResponse{Templates: templates})
}

// get handles GET /api/templates/{id}.
func (h *TemplateHandler) get(w http.ResponseWriter, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// create handles POST /api/templates.
func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	// Raw features are re-anchored like landmarks so every stored template
	// has zero axis minimums.
	landmarks := req.Landmarks
	if len(landmarks) == 0 {
		if len(req.Features) != gesture.FeatureLength {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("features must have %d components, got %d", gesture.FeatureLength, len(req.Features)))
			return
		}
		landmarks = gesture.Vector(req.Features).Landmarks()
	}
	features, err := gesture.Normalize(landmarks)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t := &store.Template{
		Symbol:   req.Symbol,
		Features: features,
	}
	if err := h.store.Templates().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	if err := h.reload(); err != nil {
		writeError(w, http.StatusInternalServerError, "Template saved but classifier reload failed")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// delete handles DELETE /api/templates/{id}.
func (h *TemplateHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Templates().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	if err := h.reload(); err != nil {
		writeError(w, http.StatusInternalServerError, "Template deleted but classifier reload failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandler) reload() error {
	if h.live == nil {
		return nil
	}
	return ReloadTemplates(h.store, h.live)
}
