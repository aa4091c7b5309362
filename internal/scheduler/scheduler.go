package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/marine-conditions/internal/weather"
)

// Forecaster answers forecast requests; *weather.Service satisfies it.
type Forecaster interface {
	GetForecast(ctx context.Context, req weather.ForecastRequest) (*weather.ForecastResult, error)
}

// Purger drops expired cache entries; *store.ForecastCache satisfies it.
type Purger interface {
	Purge() int
}

// Config selects the periodic jobs.
type Config struct {
	PurgeInterval time.Duration
	WarmLocations []string
	WarmDays      int
	WarmInterval  time.Duration
	WarmTimeout   time.Duration
}

// Scheduler periodically purges the forecast cache and keeps configured places warm.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	forecaster Forecaster
	purger     Purger
	cfg        Config
}

// New creates a new Scheduler.
func New(cfg Config, forecaster Forecaster, purger Purger) *Scheduler {
	if cfg.WarmTimeout <= 0 {
		cfg.WarmTimeout = time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		forecaster: forecaster,
		purger:     purger,
		cfg:        cfg,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	scheduled := 0

	if s.purger != nil && s.cfg.PurgeInterval > 0 {
		if _, err := s.scheduler.Every(s.cfg.PurgeInterval).Do(s.PurgeExpired); err != nil {
			return err
		}
		scheduled++
	}

	if len(s.cfg.WarmLocations) == 0 || s.cfg.WarmInterval <= 0 {
		log.Info("scheduler: no warm locations configured; skipping cache warming")
	} else {
		if _, err := s.scheduler.Every(s.cfg.WarmInterval).Do(s.Warm); err != nil {
			return err
		}
		scheduled++
	}

	if scheduled == 0 {
		log.Info("scheduler: nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	return nil
}

// PurgeExpired removes expired cache entries.
func (s *Scheduler) PurgeExpired() {
	if n := s.purger.Purge(); n > 0 {
		log.WithField("removed", n).Debug("scheduler: purged expired forecasts")
	}
}

// Warm requests every configured location so its forecast is cached.
func (s *Scheduler) Warm() {
	log.Info("scheduler: running cache warming job")

	var wg sync.WaitGroup
	for _, loc := range s.cfg.WarmLocations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WarmTimeout)
			defer cancel()

			req := weather.ForecastRequest{LocationQuery: loc, Days: s.cfg.WarmDays}
			if _, err := s.forecaster.GetForecast(ctx, req); err != nil {
				log.WithField("location", loc).Warnf("scheduler: warming failed: %v", err)
			}
		}()
	}
	wg.Wait()
	log.Info("scheduler: completed cache warming job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
