package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WindowBounds parses date ("2006-01-02") and hourRange ("HH-HH", as
// produced by HourRange) into a left-closed, right-open UTC interval
// [start, end).
func WindowBounds(date, hourRange string) (start, end time.Time, err error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("store: invalid date %q: %w", date, err)
	}
	hour, err := parseHourRangeStart(hourRange)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start = time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
	end = start.Add(time.Hour)
	return start, end, nil
}

func parseHourRangeStart(hourRange string) (int, error) {
	parts := strings.SplitN(hourRange, "-", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("store: invalid hour range %q", hourRange)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("store: invalid hour range %q", hourRange)
	}
	return h, nil
}
