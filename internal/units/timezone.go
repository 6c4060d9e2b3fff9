package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks the name against the system tz database.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a UTC time to the named timezone.
// Stored timestamps are UTC; this is for display only.
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "" || targetTimezone == "UTC" {
		return utcTime.UTC(), nil
	}
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return utcTime, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}
	return utcTime.In(loc), nil
}

// FormatMillis renders a Unix-millisecond timestamp as RFC 3339 in the
// named timezone. Zero renders as "-".
func FormatMillis(ms int64, tz string) (string, error) {
	if ms <= 0 {
		return "-", nil
	}
	t, err := ConvertTime(time.UnixMilli(ms), tz)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}
