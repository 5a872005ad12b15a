package confidence

import (
	"regexp"
	"strconv"
	"strings"
)

// timeTokenRe matches a 12-hour clock token: "3pm", "11:30 am", "12 PM".
var timeTokenRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)

// rangeSepRe finds the dash or "to" separating a start time from an end
// time.
var rangeSepRe = regexp.MustCompile(`(?i)[-–—]|\bto\b|\buntil\b|\btill\b`)

// closeEndRe detects an end of "close"/"closing" after a range separator,
// e.g. "4pm-close", "5pm till close".
var closeEndRe = regexp.MustCompile(`(?i)(?:[-–—]|\bto\b|\buntil\b|\btill\b)\s*clos(?:e|ing)\b`)

// parseTimeRange extracts start and end hours (fractional, 24-hour) from a
// free-text time fragment. The first time token is the start; the first
// token after a dash/"to" separator is the end. A missing token yields nil,
// which disables the rules that depend on it rather than erroring.
func parseTimeRange(s string) (start, end *float64) {
	tokens := timeTokenRe.FindAllStringSubmatchIndex(s, -1)
	if len(tokens) == 0 {
		return nil, nil
	}

	first := hourFromToken(s, tokens[0])
	start = &first

	sep := rangeSepRe.FindStringIndex(s)
	if sep == nil {
		return start, nil
	}
	for _, tok := range tokens[1:] {
		if tok[0] >= sep[1] {
			h := hourFromToken(s, tok)
			end = &h
			break
		}
	}
	return start, end
}

// endsAtClose reports whether the fragment's end time is the venue's
// closing time rather than a clock time.
func endsAtClose(s string) bool {
	return closeEndRe.MatchString(s)
}

// hourFromToken converts a timeTokenRe submatch index set into a
// fractional 24-hour value.
func hourFromToken(s string, idx []int) float64 {
	hour, _ := strconv.Atoi(s[idx[2]:idx[3]])
	minutes := 0
	if idx[4] >= 0 {
		minutes, _ = strconv.Atoi(s[idx[4]:idx[5]])
	}
	meridiem := strings.ToLower(s[idx[6]:idx[7]])

	if meridiem == "pm" && hour != 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}
	return float64(hour) + float64(minutes)/60
}

// spanHours returns the duration from start to end, rolling over midnight
// when the end is numerically earlier than the start.
func spanHours(start, end float64) float64 {
	span := end - start
	if span < 0 {
		span += 24
	}
	return span
}
