package handlers

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"studiosync/internal/logger"
	"studiosync/internal/models/lesson"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON проверяет Content-Type и читает тело в dst. При ошибке ответ
// уже записан и вызывающий должен просто вернуться.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return false
	}
	return true
}

// queryInt возвращает def для пустого параметра; ok=false - значение не число.
func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// queryDate разбирает YYYY-MM-DD в loc; ok=false - неверный формат.
func queryDate(r *http.Request, key string, def time.Time, loc *time.Location) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := time.ParseInLocation(lesson.DateLayout, raw, loc)
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("query", key),
			zap.String("value", raw),
			zap.String("client_ip", r.RemoteAddr))
		return time.Time{}, false
	}
	return v, true
}
