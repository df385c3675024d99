package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type DirectoryHandler struct {
	DirectoryService DirectoryService
}

func NewDirectoryHandler(directoryService DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{DirectoryService: directoryService}
}

// Mount добавляет /students, /teachers и /bands в общий роутер.
func (h *DirectoryHandler) Mount(r chi.Router) {
	r.Get("/students", h.ListStudents)
	r.Get("/students/{id}", h.GetStudent)
	r.Get("/teachers/{id}", h.GetTeacher)
	r.Get("/bands/{id}", h.GetBand)
}

func (h *DirectoryHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 1)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "page должен быть целым числом")
		return
	}
	size, ok := queryInt(r, "page_size", 0)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "page_size должен быть целым числом")
		return
	}

	res, err := h.DirectoryService.Students(r.Context(), r.URL.Query().Get("search"), queryBool(r, "active"), page, size)
	if err != nil {
		handleError(w, r, err, "list_students")
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *DirectoryHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.DirectoryService.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get_student")
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *DirectoryHandler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	t, err := h.DirectoryService.Teacher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get_teacher")
		return
	}
	respond(w, http.StatusOK, t)
}

// GetBand: отсутствующая группа даёт 404, клиент возвращается к списку.
func (h *DirectoryHandler) GetBand(w http.ResponseWriter, r *http.Request) {
	b, err := h.DirectoryService.Band(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, "get_band")
		return
	}
	respond(w, http.StatusOK, b)
}
