package util

import "time"

// HistoryWindow returns the candle range covering days calendar days up to now.
// from is aligned to the start of its UTC day; to is now in UTC.
func HistoryWindow(now time.Time, days int) (time.Time, time.Time) {
	to := now.UTC()
	from := to.AddDate(0, 0, -days).Truncate(24 * time.Hour)
	return from, to
}

// TradingDays counts weekdays in (from, to]. Exchange holidays are not excluded.
func TradingDays(from, to time.Time) int {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	n := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
