package handlers

import (
	"context"
	"time"

	"studiosync/internal/listing"
	"studiosync/internal/models/board"
	"studiosync/internal/models/lesson"
	"studiosync/internal/schedule"
	"studiosync/internal/service"
	"studiosync/internal/studioapi"
)

type BoardService interface {
	Snapshot(view service.View) (service.BoardSnapshot, error)
	AddTask(ctx context.Context, view service.View, column board.ColumnID, title string, options ...board.TaskOption) (board.Task, error)
	MoveTask(ctx context.Context, view service.View, taskID string, source, target board.ColumnID) (bool, error)
	RemoveTask(ctx context.Context, view service.View, taskID string, confirmed bool) (board.Task, error)
	SetDragOver(view service.View, column board.ColumnID) error
	ClearDragOver(view service.View) error
	Reset(ctx context.Context, view service.View) error
}

type ScheduleService interface {
	Week(ctx context.Context, anchor time.Time) (schedule.Grid, error)
	Lessons(ctx context.Context, from, to time.Time, filter service.LessonFilter, page, size int) (listing.Page[lesson.Lesson], error)
	Location() *time.Location
	CurrentWeek() time.Time
	CreateBooking(ctx context.Context, form lesson.BookingForm) (lesson.Lesson, error)
	NewBookingToken() string
	CalendarFeedURL() string
}

type PreferencesService interface {
	Draft(ctx context.Context) (service.PreferencesDraft, error)
	Update(ctx context.Context, mutate func(*lesson.Preferences)) (service.PreferencesDraft, error)
	Commit(ctx context.Context) (lesson.Preferences, error)
	Discard() bool
}

type ResourceService interface {
	List(ctx context.Context, filter service.ResourceFilter, page, size int) (listing.Page[lesson.Resource], error)
	Upload(ctx context.Context, u studioapi.Upload) (lesson.Resource, error)
	Delete(ctx context.Context, id string) error
}

type DirectoryService interface {
	Students(ctx context.Context, search string, activeOnly bool, page, size int) (listing.Page[lesson.Student], error)
	Student(ctx context.Context, id string) (lesson.Student, error)
	Teacher(ctx context.Context, id string) (lesson.Teacher, error)
	Band(ctx context.Context, id string) (lesson.Band, error)
}

// HealthCheck - проверка одной зависимости (хранилище доски, redis).
type HealthCheck func(ctx context.Context) error
