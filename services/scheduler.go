// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweeper expires overdue ACTIVE listings once a minute, so
// stale listings disappear even when nobody reads them.
func (s *MarketplaceService) StartExpirySweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.ExpireOverdueListings(); err != nil {
				log.Printf("[Scheduler] listing expiry sweep failed: %v", err)
			}
		}),
	)
}

// StartWeeklyReset zeroes the rolling weekly point totals at gameweek
// rollover (Monday 03:00 UTC, after the weekend fixtures settle).
func (s *UserService) StartWeeklyReset() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.WeeklyJob(1,
			gocron.NewWeekdays(time.Monday),
			gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0)),
		),
		gocron.NewTask(func() {
			if err := s.ResetWeeklyPoints(); err != nil {
				log.Printf("[Scheduler] weekly point reset failed: %v", err)
			} else {
				log.Println("Weekly point totals reset")
			}
		}),
	)
}
