package taskboard

import (
	"errors"
	"fmt"

	"studiosync/internal/models/board"

	"github.com/bytedance/sonic"
)

var ErrMalformed = errors.New("не удалось разобрать доску")

// Marshal сериализует колонки в формат хранилища (JSON-массив колонок).
func Marshal(columns []board.Column) ([]byte, error) {
	normalized := board.CloneColumns(columns)
	for i := range normalized {
		if normalized[i].Tasks == nil {
			normalized[i].Tasks = []board.Task{}
		}
	}
	return sonic.ConfigStd.Marshal(normalized)
}

// Unmarshal разбирает и проверяет структуру сохранённой доски.
func Unmarshal(data []byte) ([]board.Column, error) {
	var columns []board.Column
	if err := sonic.ConfigStd.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := board.ValidateShape(columns); err != nil {
		return nil, err
	}
	for i := range columns {
		if columns[i].Tasks == nil {
			columns[i].Tasks = []board.Task{}
		}
	}
	return columns, nil
}
