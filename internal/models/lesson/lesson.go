package lesson

import "time"

// Lesson принадлежит внешнему API; здесь только модель чтения.
type Lesson struct {
	ID        string    `json:"id"`
	StudentID *string   `json:"student,omitempty"`
	BandID    *string   `json:"band,omitempty"`
	TeacherID *string   `json:"teacher,omitempty"`
	RoomID    *string   `json:"room,omitempty"`
	Title     string    `json:"title,omitempty"`
	Start     time.Time `json:"scheduled_start"`
	End       time.Time `json:"scheduled_end"`
	Duration  int       `json:"duration_minutes"`
	Type      Type      `json:"lesson_type"`
	Status    Status    `json:"status"`
}

type Type string
type Status string

const TypePrivate Type = "private"
const TypeGroup Type = "group"
const TypeWorkshop Type = "workshop"
const TypeRecital Type = "recital"
const TypeMakeup Type = "makeup"
const TypeOther Type = "other"

const StatusScheduled Status = "scheduled"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"
const StatusCancelled Status = "cancelled"
const StatusNoShow Status = "no_show"

func (t Type) Valid() bool {
	switch t {
	case TypePrivate, TypeGroup, TypeWorkshop, TypeRecital, TypeMakeup, TypeOther:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
