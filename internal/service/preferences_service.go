package service

import (
	"context"
	"sync"

	"studiosync/internal/logger"
	"studiosync/internal/models/lesson"

	"go.uber.org/zap"
)

// PreferencesDraft - черновик настроек: правки копятся здесь до Commit.
type PreferencesDraft struct {
	Preferences lesson.Preferences
	Dirty       bool
}

type draftEntry struct {
	committed lesson.Preferences
	draft     lesson.Preferences
	dirty     bool
	// revision растёт на каждую правку черновика
	revision uint64
}

// PreferencesService держит черновик настроек профиля, которому принадлежит
// токен API. Внешний API видит только зафиксированные настройки.
type PreferencesService struct {
	api ProfileAPI

	mtx   sync.Mutex
	entry *draftEntry
}

func NewPreferencesService(api ProfileAPI) *PreferencesService {
	return &PreferencesService{api: api}
}

func (s *PreferencesService) load(ctx context.Context) (*draftEntry, error) {
	s.mtx.Lock()
	e := s.entry
	s.mtx.Unlock()
	if e != nil {
		return e, nil
	}

	me, err := s.api.GetMe(ctx)
	if err != nil {
		return nil, fromUpstream("получение настроек", err, "профиль", "me")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	// параллельный запрос мог успеть загрузить профиль
	if s.entry != nil {
		return s.entry, nil
	}
	s.entry = &draftEntry{
		committed: me.Preferences.Clone(),
		draft:     me.Preferences.Clone(),
	}
	return s.entry, nil
}

// Draft возвращает черновик, при первом обращении загружая настройки из API.
func (s *PreferencesService) Draft(ctx context.Context) (PreferencesDraft, error) {
	e, err := s.load(ctx)
	if err != nil {
		return PreferencesDraft{}, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	return PreferencesDraft{Preferences: e.draft.Clone(), Dirty: e.dirty}, nil
}

// Update меняет только черновик.
func (s *PreferencesService) Update(ctx context.Context, mutate func(*lesson.Preferences)) (PreferencesDraft, error) {
	e, err := s.load(ctx)
	if err != nil {
		return PreferencesDraft{}, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	mutate(&e.draft)
	e.dirty = true
	e.revision++
	return PreferencesDraft{Preferences: e.draft.Clone(), Dirty: true}, nil
}

// Commit отправляет черновик в API. При ошибке черновик сохраняется.
// Правки, сделанные пока шёл запрос, остаются в черновике поверх
// сохранённых настроек.
func (s *PreferencesService) Commit(ctx context.Context) (lesson.Preferences, error) {
	s.mtx.Lock()
	e := s.entry
	if e == nil || !e.dirty {
		s.mtx.Unlock()
		return lesson.Preferences{}, NewNotFound("черновик настроек", "me")
	}
	draft := e.draft.Clone()
	revision := e.revision
	s.mtx.Unlock()

	saved, err := s.api.SavePreferences(ctx, draft)
	if err != nil {
		logger.Error("Service: Настройки не сохранены", err)
		return lesson.Preferences{}, fromUpstream("сохранение настроек", err, "preferences", "me")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	e.committed = saved.Clone()
	switch {
	case e.revision == revision:
		e.draft = saved.Clone()
		e.dirty = false
	case !e.dirty:
		// черновик отбросили во время запроса
		e.draft = saved.Clone()
	default:
		logger.Info("Service: Черновик изменён во время сохранения",
			zap.Uint64("revision", e.revision))
	}

	logger.Info("Service: Настройки сохранены", zap.Bool("dirty", e.dirty))
	return saved, nil
}

// Discard возвращает черновик к зафиксированным настройкам;
// false - несохранённых правок не было.
func (s *PreferencesService) Discard() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e := s.entry
	if e == nil || !e.dirty {
		return false
	}
	e.draft = e.committed.Clone()
	e.dirty = false
	e.revision++
	return true
}
