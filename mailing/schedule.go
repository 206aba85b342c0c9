package mailing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Schedule blocks and runs mailings at the configured local times until the
// context is canceled.
func (m *Mailer) Schedule(ctx context.Context) error {
	if !m.conf.Enable {
		m.log.Info("Mailing is disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	loc, err := time.LoadLocation(m.conf.Timezone)
	if err != nil {
		return fmt.Errorf("unable to load mailing timezone %s: %w", m.conf.Timezone, err)
	}
	days, err := parseDays(m.conf.Days)
	if err != nil {
		return err
	}
	hour, minute, err := parseClock(m.conf.At)
	if err != nil {
		return err
	}

	for {
		next := nextRun(time.Now().In(loc), days, hour, minute)
		m.log.Info("Next mailing scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := m.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Error("Mailing run failed", zap.Error(err))
		}
	}
}

func parseDays(names []string) (map[time.Weekday]bool, error) {
	byName := map[string]time.Weekday{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		byName[d.String()] = d
	}

	days := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown mailing day %q", name)
		}
		days[d] = true
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no mailing days configured")
	}
	return days, nil
}

func parseClock(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse mailing time %q: %w", at, err)
	}
	return t.Hour(), t.Minute(), nil
}

// nextRun returns the first configured moment strictly after now, in now's
// location.
func nextRun(now time.Time, days map[time.Weekday]bool, hour, minute int) time.Time {
	for add := 0; add <= 7; add++ {
		day := now.AddDate(0, 0, add)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
		if days[candidate.Weekday()] && candidate.After(now) {
			return candidate
		}
	}
	// unreachable with at least one configured day
	return now.AddDate(0, 0, 7)
}
