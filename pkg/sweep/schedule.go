package sweep

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule returns the next sweep time after from. Every cron.Schedule is one.
type Schedule interface {
	Next(from time.Time) time.Time
}

// Every sweeps at a fixed interval. Unlike cron's "@every" it accepts
// sub-second intervals.
type Every time.Duration

// Next implements Schedule.
func (e Every) Next(from time.Time) time.Time {
	return from.Add(time.Duration(e))
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron parses a five-field cron expression or a descriptor such as
// "@hourly" or "@every 1m".
func Cron(expr string) (Schedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return s, nil
}
