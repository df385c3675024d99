// Package listing фильтрует и постранично режет списки, полученные целиком из API.
package listing

import "strings"

const DefaultPageSize = 20
const MaxPageSize = 100

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Filter оставляет элементы, для которых keep вернул true; порядок сохраняется.
func Filter[T any](items []T, keep func(T) bool) []T {
	res := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			res = append(res, it)
		}
	}
	return res
}

// Normalize приводит номер страницы и размер к допустимым значениям.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Paginate возвращает страницу page (с единицы). Страница за пределами
// списка пустая, но Total и TotalPages заполнены.
func Paginate[T any](items []T, page, size int) Page[T] {
	page, size = Normalize(page, size)

	total := len(items)
	totalPages := (total + size - 1) / size

	res := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	}
	// сравниваем номера страниц до умножения: огромный page переполнил бы offset
	if page > totalPages {
		return res
	}

	offset := (page - 1) * size
	end := offset + size
	if end > total {
		end = total
	}
	res.Items = append(res.Items, items[offset:end]...)
	return res
}

// Matches - регистронезависимый поиск подстроки хотя бы в одном из полей.
// Пустой запрос подходит всем.
func Matches(query string, fields ...string) bool {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// HasTag - регистронезависимое сравнение тегов. Пустой тег подходит всем.
func HasTag(tags []string, tag string) bool {
	if tag == "" {
		return true
	}
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
