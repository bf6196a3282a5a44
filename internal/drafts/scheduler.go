package drafts

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs fn every interval until the returned cancel func is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func(), err error)
}

// CronScheduler shares one cron runner between every open editor session.
type CronScheduler struct {
	cron *cron.Cron
}

func NewCronScheduler() *CronScheduler {
	log := cronLogger{}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(log),
		cron.WithChain(
			cron.Recover(log),
			cron.SkipIfStillRunning(log),
		),
	)
	return &CronScheduler{cron: c}
}

func (s *CronScheduler) Every(interval time.Duration, fn func()) (func(), error) {
	if interval < time.Second {
		return nil, fmt.Errorf("autosave interval must be at least 1s, got %s", interval)
	}

	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(fn))
	return func() { s.cron.Remove(id) }, nil
}

func (s *CronScheduler) Start() {
	draftsLogger.Info().Msg("Autosave scheduler started")
	s.cron.Start()
}

// Stop waits for running ticks to finish.
func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	draftsLogger.Info().Msg("Autosave scheduler stopped")
}

// Len is the number of registered schedules.
func (s *CronScheduler) Len() int {
	return len(s.cron.Entries())
}

// cronLogger routes cron's logging to the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	draftsLogger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	draftsLogger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
