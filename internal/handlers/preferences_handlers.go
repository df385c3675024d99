package handlers

import (
	"net/http"

	"studiosync/internal/handlers/dto"
	"studiosync/internal/models/lesson"

	"github.com/go-chi/chi/v5"
)

type PreferencesHandler struct {
	PreferencesService PreferencesService
}

func NewPreferencesHandler(preferencesService PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{PreferencesService: preferencesService}
}

// Routes монтируется в /preferences. Черновик один: настройки принадлежат
// профилю токена API.
func (h *PreferencesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/draft", h.GetDraft)
	r.Patch("/draft", h.PatchDraft)
	r.Delete("/draft", h.DiscardDraft)
	r.Post("/commit", h.Commit)
	return r
}

func (h *PreferencesHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.PreferencesService.Draft(r.Context())
	if err != nil {
		handleError(w, r, err, "get_preferences_draft")
		return
	}
	respond(w, http.StatusOK, dto.FromDraft(draft))
}

func (h *PreferencesHandler) PatchDraft(w http.ResponseWriter, r *http.Request) {
	var req dto.PatchPreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.PreferencesService.Update(r.Context(), func(p *lesson.Preferences) {
		req.Apply(p)
	})
	if err != nil {
		handleError(w, r, err, "update_preferences_draft")
		return
	}
	respond(w, http.StatusOK, dto.FromDraft(draft))
}

func (h *PreferencesHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	discarded := h.PreferencesService.Discard()
	responseWithJSON(w, http.StatusOK, toPayload("discarded", discarded))
}

func (h *PreferencesHandler) Commit(w http.ResponseWriter, r *http.Request) {
	saved, err := h.PreferencesService.Commit(r.Context())
	if err != nil {
		handleError(w, r, err, "commit_preferences")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("preferences", saved))
}
