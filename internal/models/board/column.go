package board

import (
	"errors"
	"fmt"
)

type ColumnID string

const ColumnTodo ColumnID = "todo"
const ColumnInProgress ColumnID = "in-progress"
const ColumnReview ColumnID = "review"
const ColumnDone ColumnID = "done"

// колонки фиксированы, пользователь не может создавать свои
var ColumnOrder = []ColumnID{ColumnTodo, ColumnInProgress, ColumnReview, ColumnDone}

func (c ColumnID) Valid() bool {
	for _, id := range ColumnOrder {
		if id == c {
			return true
		}
	}
	return false
}

type Column struct {
	ID    ColumnID `json:"id"`
	Title string   `json:"title"`
	Color string   `json:"color"`
	Tasks []Task   `json:"tasks"`
}

var ErrInvalidShape = errors.New("неверная структура доски")

// ValidateShape проверяет сохранённую доску: все фиксированные колонки ровно
// по одному разу в правильном порядке, у каждой задачи есть id и название,
// задача лежит ровно в одной колонке, приоритет из перечисления.
func ValidateShape(columns []Column) error {
	if len(columns) != len(ColumnOrder) {
		return fmt.Errorf("%w: ожидается %d колонок, получено %d", ErrInvalidShape, len(ColumnOrder), len(columns))
	}

	seen := make(map[string]ColumnID)
	for i, col := range columns {
		if col.ID != ColumnOrder[i] {
			return fmt.Errorf("%w: колонка %d должна быть %q, получено %q", ErrInvalidShape, i, ColumnOrder[i], col.ID)
		}
		for _, t := range col.Tasks {
			if t.ID == "" {
				return fmt.Errorf("%w: задача без id в колонке %q", ErrInvalidShape, col.ID)
			}
			if t.Title == "" {
				return fmt.Errorf("%w: задача %q без названия", ErrInvalidShape, t.ID)
			}
			if !t.Priority.Valid() {
				return fmt.Errorf("%w: задача %q с приоритетом %q", ErrInvalidShape, t.ID, t.Priority)
			}
			if other, ok := seen[t.ID]; ok {
				return fmt.Errorf("%w: задача %q одновременно в %q и %q", ErrInvalidShape, t.ID, other, col.ID)
			}
			seen[t.ID] = col.ID
		}
	}
	return nil
}

// DefaultColumns возвращает новую копию встроенной доски.
func DefaultColumns() []Column {
	return []Column{
		{
			ID:    ColumnTodo,
			Title: "To Do",
			Color: "#64748b",
			Tasks: []Task{
				{ID: "t1", Title: "Prepare spring recital program", Description: "Pick pieces for every student group", Priority: PriorityHigh, DueDate: "Next Friday", Assignee: "Sarah"},
				{ID: "t2", Title: "Restock practice books", Description: "Method books for beginner piano", Priority: PriorityMedium},
			},
		},
		{
			ID:    ColumnInProgress,
			Title: "In Progress",
			Color: "#3b82f6",
			Tasks: []Task{
				{ID: "t3", Title: "Tune Room B piano", Description: "Technician booked for Wednesday", Priority: PriorityMedium, Assignee: "Mike"},
			},
		},
		{
			ID:    ColumnReview,
			Title: "Review",
			Color: "#f59e0b",
			Tasks: []Task{
				{ID: "t4", Title: "Update studio policies", Description: "Cancellation and make-up lesson rules", Priority: PriorityLow},
			},
		},
		{
			ID:    ColumnDone,
			Title: "Done",
			Color: "#22c55e",
			Tasks: []Task{
				{ID: "t5", Title: "Send monthly newsletter", Priority: PriorityLow, DueDate: "Done"},
			},
		},
	}
}

// CloneColumns делает глубокую копию, чтобы снимки не делили слайсы задач.
func CloneColumns(columns []Column) []Column {
	res := make([]Column, len(columns))
	for i, col := range columns {
		res[i] = col
		res[i].Tasks = append([]Task{}, col.Tasks...)
	}
	return res
}
