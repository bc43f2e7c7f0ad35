package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job - фоновая задача. Возвращает число обработанных записей для лога.
type Job func(ctx context.Context) (int, error)

// Scheduler запускает задачи по cron-расписанию. Запуск задачи пропускается,
// если предыдущий ещё не завершился.
type Scheduler struct {
	log  *slog.Logger
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

func NewScheduler(log *slog.Logger) *Scheduler {
	cronLog := cronLogger{log: log.With(slog.String("component", "cron"))}
	ctx, stop := context.WithCancel(context.Background())

	return &Scheduler{
		log: log,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		ctx:  ctx,
		stop: stop,
	}
}

// Add регистрирует задачу. timeout ограничивает один запуск.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Job) error {
	const op = "Scheduler.Add"

	_, err := s.cron.AddFunc(spec, func() {
		s.runOnce(name, timeout, job)
	})
	if err != nil {
		return fmt.Errorf("%s: job %q: invalid schedule %q: %w", op, name, spec, err)
	}

	s.log.Info("Background job scheduled", slog.String("op", op), slog.String("job", name), slog.String("spec", spec))
	return nil
}

func (s *Scheduler) runOnce(name string, timeout time.Duration, job Job) {
	log := s.log.With(slog.String("op", "Scheduler.Run"), slog.String("job", name))

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	processed, err := job(ctx)
	if err != nil {
		log.Error("Background job failed", slog.Int("processed", processed), slog.String("error", err.Error()))
		return
	}
	if processed > 0 {
		log.Info("Background job finished", slog.Int("processed", processed), slog.Duration("duration", time.Since(start)))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop прекращает планирование, отменяет контекст задач и ждёт их завершения или ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.stop()

	select {
	case <-done.Done():
		s.log.Info("Scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out, jobs are still running")
	}
}

// cronLogger - адаптер cron.Logger поверх slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
