package service

import (
	"context"
	"errors"

	"studiosync/internal/logger"
	"studiosync/internal/models/board"
	"studiosync/internal/taskboard"

	"go.uber.org/zap"
)

type View string

// ViewKanban сохраняется в хранилище и не умеет удалять задачи,
// ViewProjects живёт в памяти и удаляет с подтверждением.
const ViewKanban View = "kanban"
const ViewProjects View = "projects"

// BoardSnapshot - состояние доски вместе с её возможностями.
type BoardSnapshot struct {
	View       View
	Columns    []board.Column
	DragOver   board.ColumnID
	CanDelete  bool
	Persistent bool
}

type BoardService struct {
	boards map[View]*taskboard.Board
}

// NewBoardService собирает обе доски. store может быть nil - тогда канбан
// тоже живёт только в памяти.
func NewBoardService(store taskboard.Store, storageKey string, options ...taskboard.Option) *BoardService {
	kanbanOpts := append([]taskboard.Option{}, options...)
	if store != nil {
		kanbanOpts = append(kanbanOpts, taskboard.WithStore(store, storageKey))
	}
	projectOpts := append([]taskboard.Option{taskboard.WithDeletion()}, options...)

	return &BoardService{
		boards: map[View]*taskboard.Board{
			ViewKanban:   taskboard.New(kanbanOpts...),
			ViewProjects: taskboard.New(projectOpts...),
		},
	}
}

// Init загружает сохранённое состояние всех досок.
func (s *BoardService) Init(ctx context.Context) map[View]taskboard.Source {
	sources := make(map[View]taskboard.Source, len(s.boards))
	for view, b := range s.boards {
		sources[view] = b.Load(ctx)
		logger.Info("Service: Доска загружена",
			zap.String("view", string(view)),
			zap.String("source", string(sources[view])))
	}
	return sources
}

func (s *BoardService) board(view View) (*taskboard.Board, error) {
	b, ok := s.boards[view]
	if !ok {
		return nil, NewNotFound("доска", string(view))
	}
	return b, nil
}

func (s *BoardService) Snapshot(view View) (BoardSnapshot, error) {
	b, err := s.board(view)
	if err != nil {
		return BoardSnapshot{}, err
	}
	return BoardSnapshot{
		View:       view,
		Columns:    b.Columns(),
		DragOver:   b.DragOver(),
		CanDelete:  b.CanDelete(),
		Persistent: b.Persistent(),
	}, nil
}

func (s *BoardService) AddTask(ctx context.Context, view View, column board.ColumnID, title string, options ...board.TaskOption) (board.Task, error) {
	b, err := s.board(view)
	if err != nil {
		return board.Task{}, err
	}

	task, err := b.Append(ctx, column, title, options...)
	if err != nil {
		return board.Task{}, boardError(err, string(column))
	}

	logger.Info("Service: Задача добавлена",
		zap.String("view", string(view)),
		zap.String("column", string(column)),
		zap.String("task_id", task.ID))
	return task, nil
}

// MoveTask возвращает false, если перенос отброшен: та же колонка или
// задачи нет в исходной колонке.
func (s *BoardService) MoveTask(ctx context.Context, view View, taskID string, source, target board.ColumnID) (bool, error) {
	b, err := s.board(view)
	if err != nil {
		return false, err
	}

	moved := b.Move(ctx, taskID, source, target)
	if !moved {
		logger.Debug("Service: Перенос отброшен",
			zap.String("view", string(view)),
			zap.String("task_id", taskID),
			zap.String("source", string(source)),
			zap.String("target", string(target)))
	}
	return moved, nil
}

func (s *BoardService) RemoveTask(ctx context.Context, view View, taskID string, confirmed bool) (board.Task, error) {
	b, err := s.board(view)
	if err != nil {
		return board.Task{}, err
	}

	task, err := b.Remove(ctx, taskID, confirmed)
	if err != nil {
		return board.Task{}, boardError(err, taskID)
	}

	logger.Info("Service: Задача удалена",
		zap.String("view", string(view)),
		zap.String("task_id", taskID))
	return task, nil
}

func (s *BoardService) SetDragOver(view View, column board.ColumnID) error {
	b, err := s.board(view)
	if err != nil {
		return err
	}
	if err := b.SetDragOver(column); err != nil {
		return boardError(err, string(column))
	}
	return nil
}

func (s *BoardService) ClearDragOver(view View) error {
	b, err := s.board(view)
	if err != nil {
		return err
	}
	b.ClearDragOver()
	return nil
}

func (s *BoardService) Reset(ctx context.Context, view View) error {
	b, err := s.board(view)
	if err != nil {
		return err
	}
	b.Reset(ctx)
	return nil
}

func boardError(err error, id string) error {
	switch {
	case errors.Is(err, taskboard.ErrColumnNotFound):
		return NewNotFound("колонка", id)
	case errors.Is(err, taskboard.ErrTaskNotFound):
		return NewNotFound("задача", id)
	case errors.Is(err, taskboard.ErrEmptyTitle):
		return NewValidationError("title", err.Error())
	case errors.Is(err, taskboard.ErrDeletionDisabled):
		return NewBusinessError(CodeDeletionDisabled, err.Error())
	case errors.Is(err, taskboard.ErrNotConfirmed):
		return NewBusinessError(CodeNotConfirmed, err.Error(), ToDetail("task_id", id))
	}
	return err
}
