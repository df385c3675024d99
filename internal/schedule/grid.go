// Package schedule раскладывает занятия недели по сетке день × час.
package schedule

import (
	"fmt"
	"time"

	"studiosync/internal/models/lesson"
)

const DaysInWeek = 7

// Первый и последний отображаемые часы включительно.
const FirstHour = 8
const LastHour = 21

const SlotCount = LastHour - FirstHour + 1

// WeekStart возвращает полночь понедельника недели, в которую попадает anchor,
// в часовом поясе anchor.
func WeekStart(anchor time.Time) time.Time {
	offset := (int(anchor.Weekday()) + 6) % 7 // понедельник = 0
	day := anchor.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, anchor.Location())
}

// WeekDays - семь последовательных дат начиная со start.
func WeekDays(start time.Time) [DaysInWeek]time.Time {
	var days [DaysInWeek]time.Time
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// Shift сдвигает якорь на weeks недель (отрицательное значение - назад).
func Shift(anchor time.Time, weeks int) time.Time {
	return anchor.AddDate(0, 0, 7*weeks)
}

// WeekRange - полуинтервал [start, start+7 дней) для запроса занятий.
func WeekRange(anchor time.Time) (time.Time, time.Time) {
	start := WeekStart(anchor)
	return start, start.AddDate(0, 0, DaysInWeek)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type Cell struct {
	Day     int             `json:"day"`
	Hour    int             `json:"hour"`
	Lessons []lesson.Lesson `json:"lessons"`
}

// OverflowReason объясняет, почему занятие не попало в сетку.
type OverflowReason string

const OverflowBeforeWindow OverflowReason = "before_window"
const OverflowAfterWindow OverflowReason = "after_window"
const OverflowOutsideWeek OverflowReason = "outside_week"

type Overflow struct {
	Lesson lesson.Lesson  `json:"lesson"`
	Reason OverflowReason `json:"reason"`
}

type Grid struct {
	WeekStart time.Time                   `json:"week_start"`
	Days      [DaysInWeek]time.Time       `json:"days"`
	Cells     [DaysInWeek][SlotCount]Cell `json:"cells"`
	Overflow  []Overflow                  `json:"overflow"`
}

// Build раскладывает занятия по ячейкам. День определяется календарной датой
// начала в часовом поясе недели, слот - часом начала. Занятия вне окна
// [FirstHour, LastHour] или вне недели в ячейки не попадают и перечисляются
// в Overflow.
func Build(weekStart time.Time, lessons []lesson.Lesson) Grid {
	start := WeekStart(weekStart)
	g := Grid{
		WeekStart: start,
		Days:      WeekDays(start),
		Overflow:  []Overflow{},
	}
	for d := 0; d < DaysInWeek; d++ {
		for s := 0; s < SlotCount; s++ {
			g.Cells[d][s] = Cell{Day: d, Hour: FirstHour + s, Lessons: []lesson.Lesson{}}
		}
	}

	loc := start.Location()
	for _, l := range lessons {
		local := l.Start.In(loc)

		day := -1
		for i, d := range g.Days {
			if SameDay(local, d) {
				day = i
				break
			}
		}
		if day < 0 {
			g.Overflow = append(g.Overflow, Overflow{Lesson: l, Reason: OverflowOutsideWeek})
			continue
		}

		hour := local.Hour()
		switch {
		case hour < FirstHour:
			g.Overflow = append(g.Overflow, Overflow{Lesson: l, Reason: OverflowBeforeWindow})
		case hour > LastHour:
			g.Overflow = append(g.Overflow, Overflow{Lesson: l, Reason: OverflowAfterWindow})
		default:
			cell := &g.Cells[day][hour-FirstHour]
			cell.Lessons = append(cell.Lessons, l)
		}
	}
	return g
}

// At возвращает ячейку по индексу дня и часу.
func (g *Grid) At(day, hour int) (Cell, bool) {
	if day < 0 || day >= DaysInWeek || hour < FirstHour || hour > LastHour {
		return Cell{}, false
	}
	return g.Cells[day][hour-FirstHour], true
}

// Placed - сколько занятий разложено по ячейкам.
func (g *Grid) Placed() int {
	n := 0
	for d := range g.Cells {
		for s := range g.Cells[d] {
			n += len(g.Cells[d][s].Lessons)
		}
	}
	return n
}

// SlotLabel форматирует час для заголовка строки: "09:00" или "9 AM".
func SlotLabel(hour int, use24h bool) string {
	if use24h {
		return fmt.Sprintf("%02d:00", hour)
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d %s", h, suffix)
}

// SlotLabels - подписи для всех строк сетки.
func SlotLabels(use24h bool) []string {
	labels := make([]string, 0, SlotCount)
	for h := FirstHour; h <= LastHour; h++ {
		labels = append(labels, SlotLabel(h, use24h))
	}
	return labels
}
