package service

import (
	"context"

	"studiosync/internal/listing"
	"studiosync/internal/models/lesson"
)

// DirectoryService читает учеников, преподавателей и группы. Отсутствующая
// запись возвращается как NOT_FOUND, клиент уводит пользователя к списку.
type DirectoryService struct {
	api DirectoryAPI
}

func NewDirectoryService(api DirectoryAPI) *DirectoryService {
	return &DirectoryService{api: api}
}

func (s *DirectoryService) Students(ctx context.Context, search string, activeOnly bool, page, size int) (listing.Page[lesson.Student], error) {
	all, err := s.api.ListStudents(ctx)
	if err != nil {
		return listing.Page[lesson.Student]{}, fromUpstream("получение учеников", err, "ученики", "")
	}

	filtered := listing.Filter(all, func(st lesson.Student) bool {
		if activeOnly && !st.IsActive {
			return false
		}
		return listing.Matches(search, st.FirstName, st.LastName, st.Email, st.Instrument)
	})
	return listing.Paginate(filtered, page, size), nil
}

func (s *DirectoryService) Student(ctx context.Context, id string) (lesson.Student, error) {
	st, err := s.api.GetStudent(ctx, id)
	if err != nil {
		return lesson.Student{}, fromUpstream("получение ученика", err, "ученик", id)
	}
	return st, nil
}

func (s *DirectoryService) Teacher(ctx context.Context, id string) (lesson.Teacher, error) {
	t, err := s.api.GetTeacher(ctx, id)
	if err != nil {
		return lesson.Teacher{}, fromUpstream("получение преподавателя", err, "преподаватель", id)
	}
	return t, nil
}

func (s *DirectoryService) Band(ctx context.Context, id string) (lesson.Band, error) {
	b, err := s.api.GetBand(ctx, id)
	if err != nil {
		return lesson.Band{}, fromUpstream("получение группы", err, "группа", id)
	}
	return b, nil
}
