package service

import (
	"context"
	"time"

	"studiosync/internal/models/lesson"
	"studiosync/internal/studioapi"
)

type LessonAPI interface {
	ListLessons(ctx context.Context, from, to time.Time) ([]lesson.Lesson, error)
	CreateLesson(ctx context.Context, payload lesson.CreateLessonRequest, idempotencyKey string) (lesson.Lesson, error)
	CalendarFeedURL() string
}

type ProfileAPI interface {
	GetMe(ctx context.Context) (lesson.UserProfile, error)
	SavePreferences(ctx context.Context, prefs lesson.Preferences) (lesson.Preferences, error)
}

type ResourceAPI interface {
	ListResources(ctx context.Context) ([]lesson.Resource, error)
	UploadResource(ctx context.Context, u studioapi.Upload) (lesson.Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

type DirectoryAPI interface {
	ListStudents(ctx context.Context) ([]lesson.Student, error)
	GetStudent(ctx context.Context, id string) (lesson.Student, error)
	GetTeacher(ctx context.Context, id string) (lesson.Teacher, error)
	GetBand(ctx context.Context, id string) (lesson.Band, error)
}

type Deduper interface {
	Claim(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}
