package lesson

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"
const TimeLayout = "15:04"

// MaxDuration - самое длинное занятие в минутах (сутки).
const MaxDuration = 24 * 60

// BookingForm - то, что пользователь заполняет в окне создания занятия.
type BookingForm struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	Duration       int    `json:"duration"`
	StudentID      string `json:"student_id,omitempty"`
	BandID         string `json:"band_id,omitempty"`
	TeacherID      string `json:"teacher_id,omitempty"`
	RoomID         string `json:"room_id,omitempty"`
	Type           Type   `json:"lesson_type"`
	IdempotencyKey string `json:"idempotency_key"`
}

// FieldError описывает незаполненное или неверное поле формы.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var ErrStudentOrBand = errors.New("нужно указать либо ученика, либо группу")

// Validate проверяет обязательные поля до отправки.
func (f BookingForm) Validate() error {
	if strings.TrimSpace(f.Date) == "" {
		return &FieldError{Field: "date", Reason: "обязательное поле"}
	}
	if strings.TrimSpace(f.Time) == "" {
		return &FieldError{Field: "time", Reason: "обязательное поле"}
	}
	if f.Duration <= 0 {
		return &FieldError{Field: "duration", Reason: "должна быть больше нуля"}
	}
	if f.Duration > MaxDuration {
		return &FieldError{Field: "duration", Reason: fmt.Sprintf("не больше %d минут", MaxDuration)}
	}
	if (f.StudentID == "") == (f.BandID == "") {
		return &FieldError{Field: "student_id", Reason: ErrStudentOrBand.Error()}
	}
	if !f.Type.Valid() {
		return &FieldError{Field: "lesson_type", Reason: fmt.Sprintf("неизвестный тип %q", f.Type)}
	}
	if _, _, err := f.Window(time.UTC); err != nil {
		return err
	}
	return nil
}

// Window возвращает начало (date+time) и конец (начало + duration минут) в loc.
func (f BookingForm) Window(loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, f.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &FieldError{Field: "date", Reason: "ожидается YYYY-MM-DD"}
	}
	clock, err := time.Parse(TimeLayout, f.Time)
	if err != nil {
		return time.Time{}, time.Time{}, &FieldError{Field: "time", Reason: "ожидается HH:MM"}
	}
	if f.Duration <= 0 || f.Duration > MaxDuration {
		return time.Time{}, time.Time{}, &FieldError{Field: "duration", Reason: fmt.Sprintf("от 1 до %d минут", MaxDuration)}
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	end := start.Add(time.Duration(f.Duration) * time.Minute)
	return start, end, nil
}

// CreateLessonRequest - тело POST /lessons/.
type CreateLessonRequest struct {
	StudentID *string   `json:"student,omitempty"`
	BandID    *string   `json:"band,omitempty"`
	TeacherID *string   `json:"teacher,omitempty"`
	RoomID    *string   `json:"room,omitempty"`
	Start     time.Time `json:"scheduled_start"`
	End       time.Time `json:"scheduled_end"`
	Duration  int       `json:"duration_minutes"`
	Type      Type      `json:"lesson_type"`
	Status    Status    `json:"status"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToRequest собирает тело запроса; форма должна пройти Validate.
func (f BookingForm) ToRequest(loc *time.Location) (CreateLessonRequest, error) {
	start, end, err := f.Window(loc)
	if err != nil {
		return CreateLessonRequest{}, err
	}
	return CreateLessonRequest{
		StudentID: optional(f.StudentID),
		BandID:    optional(f.BandID),
		TeacherID: optional(f.TeacherID),
		RoomID:    optional(f.RoomID),
		Start:     start,
		End:       end,
		Duration:  f.Duration,
		Type:      f.Type,
		Status:    StatusScheduled,
	}, nil
}
