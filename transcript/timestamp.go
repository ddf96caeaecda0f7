package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// parseTimestamp parses "HH:MM:SS,mmm", "HH:MM:SS.mmm" or the WebVTT short
// form "MM:SS.mmm" into seconds.
func parseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	clock, frac, ok := strings.Cut(value, ".")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	if len(frac) > 3 {
		frac = frac[:3]
	}

	parts := strings.Split(clock, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.Atoi(parts[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil || minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	// "1.5" style fractions are tenths, not milliseconds.
	for i := len(frac); i < 3; i++ {
		millis *= 10
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// parseTiming parses a "start --> end [settings]" line.
func parseTiming(line string) (float64, float64, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("missing --> in %q", line)
	}
	if fields := strings.Fields(right); len(fields) > 0 {
		right = fields[0]
	}
	start, err := parseTimestamp(left)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(right)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
