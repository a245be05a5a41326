package vtt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timestampRegex = regexp.MustCompile(`^(?:(\d+):)?([0-5]\d):([0-5]\d)\.(\d{3})$`)

// parses a WebVTT timestamp ([hh:]mm:ss.ttt) into milliseconds
func ParseTimestamp(s string) (int64, error) {
	matches := timestampRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var hours int64
	if matches[1] != "" {
		h, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp hours %q: %w", s, err)
		}
		hours = h
	}
	minutes, _ := strconv.ParseInt(matches[2], 10, 64)
	seconds, _ := strconv.ParseInt(matches[3], 10, 64)
	millis, _ := strconv.ParseInt(matches[4], 10, 64)

	return ((hours*60+minutes)*60+seconds)*1000 + millis, nil
}

// formats milliseconds as hh:mm:ss.ttt
func FormatTimestamp(ms int64) string {
	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	seconds := ms / 1000 % 60
	millis := ms % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
