// Package studioapi - тонкий клиент внешнего REST API студии.
package studioapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studiosync/internal/logger"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const CalendarFeedPath = "/api/calendar/my/lessons.ics"

const maxErrorBody = 64 << 10

var ErrNotFound = errors.New("не найдено во внешнем API")

// APIError - ответ API со статусом не 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("studio api: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func New(baseURL, token string, timeout time.Duration, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("разбор base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url должен быть абсолютным: %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		token:   token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// CalendarFeedURL - адрес iCal-ленты для подписки во внешнем календаре.
func (c *Client) CalendarFeedURL() string {
	return c.origin() + CalendarFeedPath
}

func (c *Client) origin() string {
	return c.baseURL.Scheme + "://" + c.baseURL.Host
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	headers     map[string]string
}

func (c *Client) jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	data, err := sonic.ConfigStd.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("сериализация тела: %w", err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

// do выполняет запрос и раскладывает JSON-ответ в out (если out не nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	body, err := c.doRaw(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(body, out); err != nil {
		return fmt.Errorf("разбор ответа %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// doRaw выполняет запрос и возвращает тело успешного ответа.
func (c *Client) doRaw(ctx context.Context, r request) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("StudioAPI: Ошибка сети",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	logger.Debug("StudioAPI: Ответ получен",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readAPIError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа %s %s: %w", r.method, r.path, err)
	}
	return body, nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload map[string]any
	if err := sonic.ConfigStd.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				apiErr.Message = msg
				return apiErr
			}
		}
		// ошибки валидации полей: {"field": ["msg"]}
		for field, v := range payload {
			if list, ok := v.([]any); ok && len(list) > 0 {
				if msg, ok := list[0].(string); ok {
					apiErr.Message = field + ": " + msg
					return apiErr
				}
			}
		}
	}
	return apiErr
}

// listEnvelope - постраничный ответ вида {"count": N, "results": [...]}.
type listEnvelope[T any] struct {
	Results []T `json:"results"`
}

// getList читает либо голый массив, либо постраничный конверт.
func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	raw, err := c.doRaw(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := sonic.ConfigStd.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("разбор списка %s: %w", path, err)
		}
		return items, nil
	}

	var env listEnvelope[T]
	if err := sonic.ConfigStd.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("разбор списка %s: %w", path, err)
	}
	if env.Results == nil {
		env.Results = []T{}
	}
	return env.Results, nil
}
