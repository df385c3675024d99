package service

import (
	"context"
	"errors"

	"studiosync/internal/listing"
	"studiosync/internal/logger"
	"studiosync/internal/models/lesson"
	"studiosync/internal/studioapi"

	"go.uber.org/zap"
)

// ResourceFilter - фильтры библиотеки материалов; пустые поля не ограничивают выборку.
type ResourceFilter struct {
	Type      lesson.ResourceType
	BandID    string
	Tag       string
	Search    string
	MusicOnly bool
}

func (f ResourceFilter) match(r lesson.Resource) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.MusicOnly && !r.Type.IsMusic() {
		return false
	}
	if f.BandID != "" && (r.BandID == nil || *r.BandID != f.BandID) {
		return false
	}
	if !listing.HasTag(r.Tags, f.Tag) {
		return false
	}
	return listing.Matches(f.Search, r.Title, r.Description, r.Composer, r.Category)
}

type ResourceService struct {
	api ResourceAPI
}

func NewResourceService(api ResourceAPI) *ResourceService {
	return &ResourceService{api: api}
}

// List загружает библиотеку целиком и фильтрует её на нашей стороне.
func (s *ResourceService) List(ctx context.Context, filter ResourceFilter, page, size int) (listing.Page[lesson.Resource], error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return listing.Page[lesson.Resource]{}, NewValidationError("resource_type", "неизвестный тип")
	}

	all, err := s.api.ListResources(ctx)
	if err != nil {
		return listing.Page[lesson.Resource]{}, fromUpstream("получение материалов", err, "материалы", "")
	}

	return listing.Paginate(listing.Filter(all, filter.match), page, size), nil
}

func (s *ResourceService) Upload(ctx context.Context, u studioapi.Upload) (lesson.Resource, error) {
	if err := u.Validate(); err != nil {
		field := "title"
		switch {
		case errors.Is(err, studioapi.ErrUploadSource):
			field = "file"
		case u.Title != "":
			field = "resource_type"
		}
		return lesson.Resource{}, NewValidationError(field, err.Error())
	}

	created, err := s.api.UploadResource(ctx, u)
	if err != nil {
		logger.Error("Service: Материал не загружен", err, zap.String("title", u.Title))
		return lesson.Resource{}, fromUpstream("загрузка материала", err, "материал", u.Title)
	}

	logger.Info("Service: Материал загружен", zap.String("resource_id", created.ID))
	return created, nil
}

func (s *ResourceService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteResource(ctx, id); err != nil {
		return fromUpstream("удаление материала", err, "материал", id)
	}
	logger.Info("Service: Материал удалён", zap.String("resource_id", id))
	return nil
}
