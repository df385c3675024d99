package handlers

import (
	"errors"
	"net/http"
	"strings"

	"studiosync/internal/logger"
	"studiosync/internal/models/lesson"
	"studiosync/internal/service"
	"studiosync/internal/studioapi"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadMemory = 8 << 20

// DefaultMaxUploadSize - предел тела запроса загрузки материала.
const DefaultMaxUploadSize = 64 << 20

type ResourceHandler struct {
	ResourceService ResourceService
	MaxUploadSize   int64
}

func NewResourceHandler(resourceService ResourceService) *ResourceHandler {
	return &ResourceHandler{ResourceService: resourceService, MaxUploadSize: DefaultMaxUploadSize}
}

// Routes монтируется в /resources.
func (h *ResourceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListResources)
	r.Post("/", h.UploadResource)
	r.Delete("/{id}", h.DeleteResource)
	return r
}

func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ResourceFilter{
		Type:      lesson.ResourceType(q.Get("type")),
		BandID:    q.Get("band"),
		Tag:       q.Get("tag"),
		Search:    q.Get("search"),
		MusicOnly: queryBool(r, "music"),
	}

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

	res, err := h.ResourceService.List(r.Context(), filter, page, size)
	if err != nil {
		handleError(w, r, err, "list_resources")
		return
	}
	respond(w, http.StatusOK, res)
}

// parseTags принимает JSON-массив или список через запятую.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var tags []string
	if strings.HasPrefix(raw, "[") && sonic.ConfigStd.UnmarshalFromString(raw, &tags) == nil {
		return tags
	}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// UploadResource принимает multipart-форму и пересылает её во внешний API.
func (h *ResourceHandler) UploadResource(w http.ResponseWriter, r *http.Request) {
	if !checkContentType(r, "multipart/form-data") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть multipart/form-data")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("HTTP: Ошибка чтения формы", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responseWithError(w, http.StatusRequestEntityTooLarge, "файл больше допустимого размера")
			return
		}
		responseWithError(w, http.StatusBadRequest, "неверная форма: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	upload := studioapi.Upload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Type:        lesson.ResourceType(r.FormValue("resource_type")),
		Category:    r.FormValue("category"),
		Tags:        parseTags(r.FormValue("tags")),
		ExternalURL: r.FormValue("external_url"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		upload.File = file
		upload.FileName = header.Filename
	case !errors.Is(err, http.ErrMissingFile):
		responseWithError(w, http.StatusBadRequest, "не удалось прочитать файл: "+err.Error())
		return
	}

	created, err := h.ResourceService.Upload(r.Context(), upload)
	if err != nil {
		handleError(w, r, err, "upload_resource")
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.ResourceService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err, "delete_resource")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
