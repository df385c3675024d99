package worker

import (
	"context"
	"time"

	"studiosync/internal/logger"

	"go.uber.org/zap"
)

const defaultInterval = 5 * time.Minute

// WeekRefresher перезагружает недели расписания из внешнего API.
type WeekRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// RefreshWorker периодически обновляет закэшированные недели, чтобы занятия,
// созданные в других клиентах, появлялись без перезагрузки.
type RefreshWorker struct {
	schedule WeekRefresher
	interval time.Duration
}

func NewRefreshWorker(schedule WeekRefresher, interval time.Duration) *RefreshWorker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &RefreshWorker{
		schedule: schedule,
		interval: interval,
	}
}

// Start блокируется до отмены ctx.
func (w *RefreshWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Обновление расписания запущено", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Обновление расписания останавливается")
			return
		}
	}
}

func (w *RefreshWorker) Check(ctx context.Context) {
	start := time.Now()

	refreshed, err := w.schedule.Refresh(ctx)
	if err != nil {
		logger.Warn("Worker: Не все недели обновлены",
			zap.Int("refreshed", refreshed),
			zap.Error(err))
		return
	}

	logger.Info("Worker: Завершение обновления расписания",
		zap.Duration("ms", time.Since(start)),
		zap.Int("weeks", refreshed))
}
