package studioapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"studiosync/internal/models/lesson"

	"github.com/bytedance/sonic"
)

// ListLessons возвращает занятия с началом в [from, to).
func (c *Client) ListLessons(ctx context.Context, from, to time.Time) ([]lesson.Lesson, error) {
	query := url.Values{}
	query.Set("start_date", from.Format(time.RFC3339))
	query.Set("end_date", to.Format(time.RFC3339))

	lessons, err := getList[lesson.Lesson](ctx, c, "/lessons/", query)
	if err != nil {
		return nil, fmt.Errorf("получение занятий: %w", err)
	}

	res := lessons[:0]
	for _, l := range lessons {
		if !l.Start.Before(from) && l.Start.Before(to) {
			res = append(res, l)
		}
	}
	return res, nil
}

// CreateLesson отправляет новое занятие; idempotencyKey уходит заголовком,
// чтобы бэкенд мог отбросить повтор.
func (c *Client) CreateLesson(ctx context.Context, payload lesson.CreateLessonRequest, idempotencyKey string) (lesson.Lesson, error) {
	req, err := c.jsonRequest(http.MethodPost, "/lessons/", payload)
	if err != nil {
		return lesson.Lesson{}, err
	}
	if idempotencyKey != "" {
		req.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var created lesson.Lesson
	if err := c.do(ctx, req, &created); err != nil {
		return lesson.Lesson{}, fmt.Errorf("создание занятия: %w", err)
	}
	return created, nil
}

func (c *Client) ListStudents(ctx context.Context) ([]lesson.Student, error) {
	students, err := getList[lesson.Student](ctx, c, "/students/", nil)
	if err != nil {
		return nil, fmt.Errorf("получение учеников: %w", err)
	}
	return students, nil
}

func (c *Client) GetStudent(ctx context.Context, id string) (lesson.Student, error) {
	var s lesson.Student
	err := c.do(ctx, request{method: http.MethodGet, path: "/students/" + url.PathEscape(id) + "/"}, &s)
	if err != nil {
		return lesson.Student{}, fmt.Errorf("получение ученика %s: %w", id, err)
	}
	return s, nil
}

func (c *Client) GetTeacher(ctx context.Context, id string) (lesson.Teacher, error) {
	var t lesson.Teacher
	err := c.do(ctx, request{method: http.MethodGet, path: "/core/teachers/" + url.PathEscape(id) + "/"}, &t)
	if err != nil {
		return lesson.Teacher{}, fmt.Errorf("получение преподавателя %s: %w", id, err)
	}
	return t, nil
}

func (c *Client) GetBand(ctx context.Context, id string) (lesson.Band, error) {
	var b lesson.Band
	err := c.do(ctx, request{method: http.MethodGet, path: "/core/bands/" + url.PathEscape(id) + "/"}, &b)
	if err != nil {
		return lesson.Band{}, fmt.Errorf("получение группы %s: %w", id, err)
	}
	return b, nil
}

func (c *Client) GetMe(ctx context.Context) (lesson.UserProfile, error) {
	var me lesson.UserProfile
	if err := c.do(ctx, request{method: http.MethodGet, path: "/core/users/me/"}, &me); err != nil {
		return lesson.UserProfile{}, fmt.Errorf("получение профиля: %w", err)
	}
	return me, nil
}

// SavePreferences сохраняет настройки целиком через PATCH профиля.
func (c *Client) SavePreferences(ctx context.Context, prefs lesson.Preferences) (lesson.Preferences, error) {
	req, err := c.jsonRequest(http.MethodPatch, "/core/users/me/", map[string]any{"preferences": prefs})
	if err != nil {
		return lesson.Preferences{}, err
	}

	var me lesson.UserProfile
	if err := c.do(ctx, req, &me); err != nil {
		return lesson.Preferences{}, fmt.Errorf("сохранение настроек: %w", err)
	}
	return me.Preferences, nil
}

func (c *Client) ListResources(ctx context.Context) ([]lesson.Resource, error) {
	resources, err := getList[lesson.Resource](ctx, c, "/resources/library/", nil)
	if err != nil {
		return nil, fmt.Errorf("получение материалов: %w", err)
	}
	return resources, nil
}

func (c *Client) DeleteResource(ctx context.Context, id string) error {
	err := c.do(ctx, request{method: http.MethodDelete, path: "/resources/library/" + url.PathEscape(id) + "/"}, nil)
	if err != nil {
		return fmt.Errorf("удаление материала %s: %w", id, err)
	}
	return nil
}

// Upload - загрузка материала: либо файл, либо внешняя ссылка.
type Upload struct {
	Title       string
	Description string
	Type        lesson.ResourceType
	Category    string
	Tags        []string
	FileName    string
	File        io.Reader
	ExternalURL string
}

var ErrUploadSource = errors.New("нужно передать либо файл, либо внешнюю ссылку")

func (u Upload) Validate() error {
	if u.Title == "" {
		return errors.New("название материала обязательно")
	}
	if !u.Type.Valid() {
		return fmt.Errorf("неизвестный тип материала %q", u.Type)
	}
	if (u.File == nil) == (u.ExternalURL == "") {
		return ErrUploadSource
	}
	return nil
}

// UploadResource отправляет multipart-форму с полями title, description,
// resource_type, category, tags (JSON-массив строкой) и file или external_url.
// Форма пишется в запрос потоком, файл целиком в памяти не держится.
func (c *Client) UploadResource(ctx context.Context, u Upload) (lesson.Resource, error) {
	if err := u.Validate(); err != nil {
		return lesson.Resource{}, err
	}

	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := sonic.ConfigStd.Marshal(tags)
	if err != nil {
		return lesson.Resource{}, fmt.Errorf("сериализация тегов: %w", err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	w := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(w, u, string(tagsJSON)))
	}()

	var created lesson.Resource
	req := request{
		method:      http.MethodPost,
		path:        "/resources/library/",
		body:        pr,
		contentType: w.FormDataContentType(),
	}
	if err := c.do(ctx, req, &created); err != nil {
		return lesson.Resource{}, fmt.Errorf("загрузка материала: %w", err)
	}
	return created, nil
}

func writeUploadForm(w *multipart.Writer, u Upload, tags string) error {
	fields := [][2]string{
		{"title", u.Title},
		{"description", u.Description},
		{"resource_type", string(u.Type)},
		{"category", u.Category},
		{"tags", tags},
	}
	if u.ExternalURL != "" {
		fields = append(fields, [2]string{"external_url", u.ExternalURL})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("поле %s: %w", f[0], err)
		}
	}
	if u.File != nil {
		name := u.FileName
		if name == "" {
			name = "upload"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return fmt.Errorf("поле file: %w", err)
		}
		if _, err := io.Copy(part, u.File); err != nil {
			return fmt.Errorf("копирование файла: %w", err)
		}
	}
	return w.Close()
}
