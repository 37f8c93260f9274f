package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSpan is a duration on the wire. The Web API writes it either as a
// "[-][d.]hh:mm:ss[.fffffff]" string or as a whole number of minutes.
type TimeSpan time.Duration

func (ts *TimeSpan) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*ts = 0
		return nil
	}

	if s[0] != '"' {
		var minutes float64
		if err := json.Unmarshal(data, &minutes); err != nil {
			return fmt.Errorf("invalid duration %s: %w", s, err)
		}
		*ts = TimeSpan(time.Duration(minutes * float64(time.Minute)))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	d, err := ParseTimeSpan(str)
	if err != nil {
		return err
	}
	*ts = TimeSpan(d)
	return nil
}

func (ts TimeSpan) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatTimeSpan(time.Duration(ts)))
}

// ParseTimeSpan parses "[-][d.]hh:mm:ss[.fffffff]".
func ParseTimeSpan(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timespan %q", s)
	}

	var days int64
	hourPart := parts[0]
	if i := strings.IndexByte(hourPart, '.'); i >= 0 {
		d, err := strconv.ParseInt(hourPart[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timespan days %q: %w", s, err)
		}
		days = d
		hourPart = hourPart[i+1:]
	}

	hours, err := strconv.ParseInt(hourPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timespan hours %q: %w", s, err)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timespan minutes %q: %w", s, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timespan seconds %q: %w", s, err)
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if neg {
		d = -d
	}
	return d, nil
}

// FormatTimeSpan is the inverse of ParseTimeSpan.
func FormatTimeSpan(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second

	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if d > 0 {
		// 100ns ticks
		fmt.Fprintf(&b, ".%07d", d/100)
	}
	return b.String()
}
