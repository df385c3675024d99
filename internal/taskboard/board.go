// Package taskboard держит колонки и задачи одной доски и применяет к ним
// добавление, перенос и удаление. Доска канбана и доска проектов отличаются
// только набором возможностей: сохранение в хранилище и удаление задач.
package taskboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"studiosync/internal/logger"
	"studiosync/internal/models/board"
	repo "studiosync/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrColumnNotFound = errors.New("колонка не найдена")
var ErrTaskNotFound = errors.New("задача не найдена")
var ErrDeletionDisabled = errors.New("удаление задач на этой доске недоступно")
var ErrNotConfirmed = errors.New("удаление не подтверждено")
var ErrEmptyTitle = errors.New("название задачи не может быть пустым")

// Store - постоянное хранилище сериализованной доски.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// versioned - хранилище, которое считает сохранения по ключу.
type versioned interface {
	Version(ctx context.Context, key string) (int, error)
}

// Source показывает, откуда взялось состояние после Load.
type Source string

const SourceStored Source = "stored"
const SourceDefault Source = "default"
const SourceMemory Source = "memory"

type Board struct {
	mtx      sync.RWMutex
	columns  []board.Column
	dragOver board.ColumnID

	deletion bool
	store    Store
	key      string
	newID    func() string
}

type Option func(*Board)

func WithDeletion() Option {
	return func(b *Board) {
		b.deletion = true
	}
}

func WithStore(store Store, key string) Option {
	return func(b *Board) {
		b.store = store
		b.key = key
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(b *Board) {
		b.newID = fn
	}
}

func New(options ...Option) *Board {
	b := &Board{
		columns: board.DefaultColumns(),
		newID:   NewTaskID,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// NewTaskID: метка времени плюс случайный суффикс; уникальность не проверяется.
func NewTaskID() string {
	return "task-" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + uuid.NewString()[:8]
}

func (b *Board) CanDelete() bool { return b.deletion }

func (b *Board) Persistent() bool { return b.store != nil }

// Load восстанавливает доску из хранилища. Нечитаемые данные и данные
// неверной структуры заменяются встроенной доской; ошибка хранилища
// тоже не прерывает работу.
func (b *Board) Load(ctx context.Context) Source {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.dragOver = ""
	if b.store == nil {
		b.columns = board.DefaultColumns()
		return SourceMemory
	}

	data, err := b.store.Load(ctx, b.key)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			logger.Warn("Board: Не удалось прочитать доску, используем встроенную",
				zap.String("key", b.key), zap.Error(err))
		}
		b.columns = board.DefaultColumns()
		return SourceDefault
	}

	columns, err := Unmarshal(data)
	if err != nil {
		logger.Warn("Board: Сохранённая доска повреждена, используем встроенную",
			zap.String("key", b.key), zap.Error(err))
		b.columns = board.DefaultColumns()
		return SourceDefault
	}

	b.columns = columns
	fields := []zap.Field{zap.String("key", b.key), zap.Int("bytes", len(data))}
	if vs, ok := b.store.(versioned); ok {
		if v, err := vs.Version(ctx, b.key); err == nil {
			fields = append(fields, zap.Int("version", v))
		}
	}
	logger.Info("Board: Доска загружена из хранилища", fields...)
	return SourceStored
}

// Columns возвращает глубокую копию текущего состояния.
func (b *Board) Columns() []board.Column {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return board.CloneColumns(b.columns)
}

func (b *Board) columnIndex(id board.ColumnID) int {
	for i := range b.columns {
		if b.columns[i].ID == id {
			return i
		}
	}
	return -1
}

// Append добавляет новую задачу в конец колонки.
func (b *Board) Append(ctx context.Context, columnID board.ColumnID, title string, options ...board.TaskOption) (board.Task, error) {
	if title == "" {
		return board.Task{}, ErrEmptyTitle
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	idx := b.columnIndex(columnID)
	if idx < 0 {
		return board.Task{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}

	task := board.NewTask(b.newID(), title, options...)
	b.columns[idx].Tasks = append(b.columns[idx].Tasks, task)
	b.persist(ctx)

	return task, nil
}

// Move переносит задачу в конец целевой колонки. Перенос в ту же колонку
// ничего не меняет; если задачи нет в исходной колонке, перенос отбрасывается.
// Подсветка колонки сбрасывается в любом случае.
func (b *Board) Move(ctx context.Context, taskID string, source, target board.ColumnID) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.dragOver = ""

	if source == target {
		return false
	}

	srcIdx := b.columnIndex(source)
	dstIdx := b.columnIndex(target)
	if srcIdx < 0 || dstIdx < 0 {
		return false
	}

	pos := -1
	for i, t := range b.columns[srcIdx].Tasks {
		if t.ID == taskID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}

	task := b.columns[srcIdx].Tasks[pos]
	src := b.columns[srcIdx].Tasks
	b.columns[srcIdx].Tasks = append(src[:pos:pos], src[pos+1:]...)
	b.columns[dstIdx].Tasks = append(b.columns[dstIdx].Tasks, task)
	b.persist(ctx)

	return true
}

// Remove безвозвратно удаляет задачу из колонки, в которой она лежит.
func (b *Board) Remove(ctx context.Context, taskID string, confirmed bool) (board.Task, error) {
	if !b.deletion {
		return board.Task{}, ErrDeletionDisabled
	}
	if !confirmed {
		return board.Task{}, ErrNotConfirmed
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	for ci := range b.columns {
		tasks := b.columns[ci].Tasks
		for i, t := range tasks {
			if t.ID != taskID {
				continue
			}
			b.columns[ci].Tasks = append(tasks[:i:i], tasks[i+1:]...)
			b.persist(ctx)
			return t, nil
		}
	}
	return board.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// Reset возвращает встроенную доску. Сохранённая копия удаляется:
// без неё Load и так вернёт встроенную доску.
func (b *Board) Reset(ctx context.Context) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.columns = board.DefaultColumns()
	b.dragOver = ""
	if b.store == nil {
		return
	}
	if err := b.store.Delete(ctx, b.key); err != nil {
		logger.Warn("Board: Не удалось удалить сохранённую доску", zap.String("key", b.key), zap.Error(err))
	}
}

func (b *Board) SetDragOver(columnID board.ColumnID) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.columnIndex(columnID) < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	b.dragOver = columnID
	return nil
}

func (b *Board) ClearDragOver() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.dragOver = ""
}

func (b *Board) DragOver() board.ColumnID {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.dragOver
}

// persist вызывается под блокировкой. Ошибки только логируются.
func (b *Board) persist(ctx context.Context) {
	if b.store == nil {
		return
	}

	data, err := Marshal(b.columns)
	if err != nil {
		logger.Warn("Board: Ошибка сериализации доски", zap.String("key", b.key), zap.Error(err))
		return
	}

	if err := b.store.Save(ctx, b.key, data); err != nil {
		logger.Warn("Board: Не удалось сохранить доску", zap.String("key", b.key), zap.Error(err))
	}
}
