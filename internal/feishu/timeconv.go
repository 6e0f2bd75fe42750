package feishu

import (
	"fmt"
	"strconv"
	"time"
)

// timeLayout is the wall-clock format accepted for all date-time parameters.
const timeLayout = "2006-01-02 15:04:05"

// ToTimestampString converts a local date-time string in the named IANA zone
// to the UTC millisecond epoch, encoded as a decimal string. An empty value
// returns an empty string without error.
//
// Example: ToTimestampString("2023-05-01 14:30:00", "Asia/Shanghai")
// returns "1682922600000".
func ToTimestampString(value, zone string) (string, error) {
	if value == "" {
		return "", nil
	}

	loc, err := loadZone(zone)
	if err != nil {
		return "", err
	}

	t, err := time.ParseInLocation(timeLayout, value, loc)
	if err != nil {
		return "", fmt.Errorf("invalid time string %q (want \"2006-01-02 15:04:05\"): %w", value, err)
	}

	return strconv.FormatInt(t.UnixMilli(), 10), nil
}

func loadZone(zone string) (*time.Location, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", zone, err)
	}
	return loc, nil
}
