package ttml

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var (
	clockTimeRegex = regexp.MustCompile(
		`^([0-9][0-9]+):([0-9][0-9]):([0-9][0-9])(?:(\.[0-9]+)|:([0-9][0-9])(?:\.([0-9]+))?)?$`,
	)
	offsetTimeRegex = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(h|m|s|ms|f|t)$`)
)

// frame, subframe and tick rates used to resolve time expressions
type TimeBase struct {
	FrameRate    float64
	SubFrameRate float64
	TickRate     float64
}

func DefaultTimeBase() TimeBase {
	return TimeBase{
		FrameRate:    30,
		SubFrameRate: 1,
		TickRate:     1,
	}
}

// ParseTimeExpression converts a TTML clock-time (hh:mm:ss.fraction or
// hh:mm:ss:frames.subframes) or offset-time (number followed by h, m, s,
// ms, f or t) into milliseconds.
func (tb TimeBase) ParseTimeExpression(expr string) (int64, error) {
	if m := clockTimeRegex.FindStringSubmatch(expr); m != nil {
		hours, _ := strconv.ParseFloat(m[1], 64)
		minutes, _ := strconv.ParseFloat(m[2], 64)
		seconds, _ := strconv.ParseFloat(m[3], 64)
		total := hours*3600 + minutes*60 + seconds

		if m[4] != "" {
			fraction, _ := strconv.ParseFloat(m[4], 64)
			total += fraction
		}
		if m[5] != "" {
			frames, _ := strconv.ParseFloat(m[5], 64)
			total += frames / tb.FrameRate
		}
		if m[6] != "" {
			subframes, _ := strconv.ParseFloat(m[6], 64)
			total += subframes / tb.SubFrameRate / tb.FrameRate
		}
		return toMillis(total * 1000), nil
	}

	if m := offsetTimeRegex.FindStringSubmatch(expr); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time expression %q: %w", expr, err)
		}
		switch m[2] {
		case "h":
			value *= 3_600_000
		case "m":
			value *= 60_000
		case "s":
			value *= 1000
		case "ms":
		case "f":
			value = value / tb.FrameRate * 1000
		case "t":
			value = value / tb.TickRate * 1000
		}
		return toMillis(value), nil
	}

	return 0, fmt.Errorf("invalid time expression %q", expr)
}

func toMillis(v float64) int64 {
	return int64(math.Round(v))
}

// reads ttp rate attributes from the root element, keeping defaults for
// missing or invalid values
func (tb TimeBase) withRate(name, value string) (TimeBase, error) {
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil || rate <= 0 {
		return tb, fmt.Errorf("invalid %s %q", name, value)
	}
	switch name {
	case "ttp:frameRate":
		tb.FrameRate = rate
	case "ttp:subFrameRate":
		tb.SubFrameRate = rate
	case "ttp:tickRate":
		tb.TickRate = rate
	}
	return tb, nil
}
