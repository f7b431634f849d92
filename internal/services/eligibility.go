package services

import (
	"time"

	"gastos/internal/core"
)

// IsDue reports whether a recurring template must be materialized on the
// calendar date of now. A template is due when it is active, its anchor day
// matches today, and it has not produced a transaction yet during the
// current month. Comparing ultimo_procesado against the first day of the
// month makes a pass idempotent no matter how often it runs, and a stamp
// from any earlier month (February included) never suppresses the current
// one.
func IsDue(tpl core.RecurringTemplate, now time.Time) bool {
	if !tpl.Active || tpl.DayOfMonth != now.Day() {
		return false
	}
	if tpl.LastProcessed.IsZero() {
		return true
	}
	monthStart := core.NewDate(now.Year(), int(now.Month()), 1)
	return tpl.LastProcessed.Before(monthStart.Time)
}
