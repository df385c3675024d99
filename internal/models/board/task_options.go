package board

type TaskOption func(*Task)

func WithDescription(description string) TaskOption {
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = description
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

// срок хранится как свободный текст ("Next Friday"), а не как дата
func WithDueDate(label string) TaskOption {
	if label == "" {
		return nil
	}
	return func(task *Task) {
		task.DueDate = label
	}
}

func WithAssignee(name string) TaskOption {
	if name == "" {
		return nil
	}
	return func(task *Task) {
		task.Assignee = name
	}
}

// NewTask собирает задачу, пропуская nil-опции.
func NewTask(id, title string, options ...TaskOption) Task {
	t := Task{
		ID:       id,
		Title:    title,
		Priority: PriorityMedium,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&t)
		}
	}
	return t
}
