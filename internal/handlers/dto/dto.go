package dto

import (
	"time"

	"studiosync/internal/models/board"
	"studiosync/internal/models/lesson"
	"studiosync/internal/schedule"
	"studiosync/internal/service"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Assignee    string `json:"assignee"`
}

type MoveTaskRequest struct {
	TaskID string         `json:"taskId"`
	Source board.ColumnID `json:"source"`
	Target board.ColumnID `json:"target"`
}

type DragOverRequest struct {
	Column board.ColumnID `json:"column"`
}

type BoardResponse struct {
	View       string         `json:"view"`
	Columns    []board.Column `json:"columns"`
	DragOver   board.ColumnID `json:"dragOver,omitempty"`
	CanDelete  bool           `json:"canDelete"`
	Persistent bool           `json:"persistent"`
}

func FromSnapshot(s service.BoardSnapshot) BoardResponse {
	return BoardResponse{
		View:       string(s.View),
		Columns:    s.Columns,
		DragOver:   s.DragOver,
		CanDelete:  s.CanDelete,
		Persistent: s.Persistent,
	}
}

type MoveTaskResponse struct {
	Moved bool          `json:"moved"`
	Board BoardResponse `json:"board"`
}

type DayResponse struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

type SlotRow struct {
	Hour  int                                   `json:"hour"`
	Label string                                `json:"label"`
	Cells [schedule.DaysInWeek][]lesson.Lesson `json:"cells"`
}

type OverflowResponse struct {
	Lesson lesson.Lesson `json:"lesson"`
	Reason string        `json:"reason"`
}

// WeekResponse - сетка недели построчно: строка на час, колонка на день.
type WeekResponse struct {
	WeekStart       string             `json:"weekStart"`
	PrevAnchor      string             `json:"prevAnchor"`
	NextAnchor      string             `json:"nextAnchor"`
	Days            []DayResponse      `json:"days"`
	Slots           []SlotRow          `json:"slots"`
	Overflow        []OverflowResponse `json:"overflow"`
	CalendarFeedURL string             `json:"calendarFeedUrl"`
}

func FromGrid(g schedule.Grid, use24h bool, feedURL string) WeekResponse {
	resp := WeekResponse{
		WeekStart:       g.WeekStart.Format(lesson.DateLayout),
		PrevAnchor:      schedule.Shift(g.WeekStart, -1).Format(lesson.DateLayout),
		NextAnchor:      schedule.Shift(g.WeekStart, 1).Format(lesson.DateLayout),
		Days:            make([]DayResponse, 0, schedule.DaysInWeek),
		Slots:           make([]SlotRow, 0, schedule.SlotCount),
		Overflow:        make([]OverflowResponse, 0, len(g.Overflow)),
		CalendarFeedURL: feedURL,
	}

	for _, d := range g.Days {
		resp.Days = append(resp.Days, DayResponse{Date: d.Format(lesson.DateLayout), Weekday: d.Weekday().String()})
	}

	for s, label := range schedule.SlotLabels(use24h) {
		row := SlotRow{Hour: schedule.FirstHour + s, Label: label}
		for d := 0; d < schedule.DaysInWeek; d++ {
			row.Cells[d] = g.Cells[d][s].Lessons
		}
		resp.Slots = append(resp.Slots, row)
	}

	for _, o := range g.Overflow {
		resp.Overflow = append(resp.Overflow, OverflowResponse{Lesson: o.Lesson, Reason: string(o.Reason)})
	}
	return resp
}

type BookingTokenResponse struct {
	Token string `json:"token"`
}

type BookingResponse struct {
	Lesson    lesson.Lesson `json:"lesson"`
	WeekStart string        `json:"weekStart"`
}

func FromBooking(l lesson.Lesson, loc *time.Location) BookingResponse {
	return BookingResponse{
		Lesson:    l,
		WeekStart: schedule.WeekStart(l.Start.In(loc)).Format(lesson.DateLayout),
	}
}

// PatchPreferencesRequest - частичная правка черновика; карты сливаются
// с существующими значениями.
type PatchPreferencesRequest struct {
	DashboardLayout *[]string         `json:"dashboard_layout,omitempty"`
	Notifications   map[string]bool   `json:"notifications,omitempty"`
	TimeFormat24h   *bool             `json:"time_format_24h,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

func (p PatchPreferencesRequest) Apply(prefs *lesson.Preferences) {
	if p.DashboardLayout != nil {
		prefs.DashboardLayout = append([]string(nil), (*p.DashboardLayout)...)
	}
	if p.TimeFormat24h != nil {
		prefs.TimeFormat24h = *p.TimeFormat24h
	}
	if len(p.Notifications) > 0 {
		if prefs.Notifications == nil {
			prefs.Notifications = make(map[string]bool, len(p.Notifications))
		}
		for k, v := range p.Notifications {
			prefs.Notifications[k] = v
		}
	}
	if len(p.Extra) > 0 {
		if prefs.Extra == nil {
			prefs.Extra = make(map[string]string, len(p.Extra))
		}
		for k, v := range p.Extra {
			prefs.Extra[k] = v
		}
	}
}

type PreferencesDraftResponse struct {
	Preferences lesson.Preferences `json:"preferences"`
	Dirty       bool               `json:"dirty"`
}

func FromDraft(d service.PreferencesDraft) PreferencesDraftResponse {
	return PreferencesDraftResponse{Preferences: d.Preferences, Dirty: d.Dirty}
}
