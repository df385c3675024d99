package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"studiosync/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

const maxRequestIDLen = 64

// validRequestID пропускает только короткие id из [A-Za-z0-9._-], чтобы
// клиент не мог протащить в логи произвольный текст.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// RequestID берёт X-Request-ID клиента или выдаёт новый uuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIdKey, id)))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

// statusWriter запоминает код ответа и число записанных байт.
type statusWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.wroteHeader {
		return
	}
	sw.status = code
	sw.wroteHeader = true
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.WriteHeader(http.StatusOK)
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zap.ErrorLevel
	case status >= 400:
		return zap.WarnLevel
	}
	return zap.InfoLevel
}

// Logging пишет одну строку на запрос с шаблоном маршрута chi, чтобы
// запросы к /boards/kanban и /boards/projects группировались вместе.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		logger.Log(levelFor(sw.status), "HTTP: Запрос обработан",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", clientKey(r)),
			zap.Int("status", sw.status),
			zap.Int("bytes_written", sw.size),
			zap.Duration("ms", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(body)
}

// Timeout ограничивает контекст запроса. Обработчик работает в той же
// горутине; если он ничего не записал к моменту истечения срока,
// клиент получает 504.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.wroteHeader || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			requestId := GetRequestID(r.Context())
			logger.Warn("HTTP: Таймаут запроса",
				zap.String("request_id", requestId),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("timeout", timeout))

			writeJSON(w, http.StatusGatewayTimeout, map[string]any{
				"error":      "request_timeout",
				"message":    "запрос выполнялся слишком долго",
				"request_id": requestId,
			})
		})
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter считает запросы каждого клиента в окне фиксированной длины.
// Истёкшие окна вычищаются не реже раза за окно, так что в памяти
// остаются только клиенты, приходившие недавно.
type Limiter struct {
	rpm    int
	period time.Duration
	now    func() time.Time

	mtx       sync.Mutex
	clients   map[string]*window
	lastSweep time.Time
}

type LimiterOption func(*Limiter)

func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(rpm int, options ...LimiterOption) *Limiter {
	l := &Limiter{
		rpm:     rpm,
		period:  time.Minute,
		now:     time.Now,
		clients: make(map[string]*window),
	}
	for _, opt := range options {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Allow учитывает запрос клиента key. ok=false - лимит исчерпан до resetAt.
func (l *Limiter) Allow(key string) (remaining int, resetAt time.Time, ok bool) {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if now.Sub(l.lastSweep) >= l.period {
		l.sweep(now)
	}

	win, exists := l.clients[key]
	if !exists || !now.Before(win.resetAt) {
		win = &window{resetAt: now.Add(l.period)}
		l.clients[key] = win
	}
	if win.count >= l.rpm {
		return 0, win.resetAt, false
	}
	win.count++
	return l.rpm - win.count, win.resetAt, true
}

// Sweep удаляет истёкшие окна и возвращает число удалённых клиентов.
func (l *Limiter) Sweep() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.sweep(l.now())
}

func (l *Limiter) sweep(now time.Time) int {
	removed := 0
	for key, win := range l.clients {
		if !now.Before(win.resetAt) {
			delete(l.clients, key)
			removed++
		}
	}
	l.lastSweep = now
	return removed
}

// Clients - число клиентов с открытым окном.
func (l *Limiter) Clients() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, resetAt, ok := l.Allow(clientKey(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			retryAfter := int(resetAt.Sub(l.now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Слишком много запросов. Попробуйте позже.",
				"retry_after": retryAfter,
				"request_id":  GetRequestID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit - не более rpm запросов в минуту с одного IP.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	return NewLimiter(rpm).Middleware
}

// clientKey - IP клиента без порта.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
