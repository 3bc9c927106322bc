package autopilot

import (
	"context"
	"time"

	"autopilot/internal/broker"
	"autopilot/internal/logger"
)

var easternTime = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// marketOpen asks the exchange clock, falling back to the regular-session
// schedule when the clock is unreachable.
func marketOpen(ctx context.Context, clock broker.Clock, now time.Time) bool {
	if clock != nil {
		open, err := clock.IsMarketOpen(ctx)
		if err == nil {
			return open
		}
		logger.Warnf("market clock unavailable, using local schedule: %v", err)
	}
	return regularSessionOpen(now)
}

// regularSessionOpen approximates NYSE regular hours: weekdays 09:30-16:00
// Eastern. Holidays are not modeled; the exchange clock covers those when
// it is reachable.
func regularSessionOpen(now time.Time) bool {
	et := now.In(easternTime)
	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
