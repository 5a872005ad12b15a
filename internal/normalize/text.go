package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// NormalizeText strips volatile content from scraped page text so two
// crawls of an unchanged page hash identically. It is pure and idempotent:
// applying it to its own output is a no-op.
func NormalizeText(text string) string {
	if looksBinary(text) {
		return ""
	}

	text = stripVolatileDates(text)
	text = canonicalizeWeeklyHours(text)
	text = stripTrackingNoise(text)
	text = bareYearRe.ReplaceAllString(text, " ")

	return collapseWhitespace(text)
}

// looksBinary reports whether the input is likely a binary payload rather
// than page text: more than 30% non-printable bytes over a 100-byte
// minimum. Hashing binary junk as if it were content produces useless
// deltas, so it is dropped outright.
func looksBinary(s string) bool {
	if len(s) <= 100 {
		return false
	}
	nonPrintable := 0
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if r < 0x20 || r == 0xFFFD {
			nonPrintable++
		}
	}
	return float64(nonPrintable) > 0.3*float64(len(s))
}

// Volatile date/time patterns. These change every crawl but carry no
// business meaning.
var (
	// ISO-8601 timestamps: 2024-05-01T09:30:00Z, 2024-05-01 09:30:00+02:00
	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2})?(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)

	// "Tuesday, March 5th, 2024" and similar weekday + month-day phrases.
	weekdayDateRe = regexp.MustCompile(`(?i)\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s*,?\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?(?:\s*,?\s*\d{4})?\b`)

	// Bare "March 5th, 2024" / "March 5" phrases.
	monthDayRe = regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?(?:\s*,?\s*\d{4})?\b`)

	// Standalone "current year" text, volatile by nature.
	bareYearRe = regexp.MustCompile(`\b20[23]\d\b`)
)

func stripVolatileDates(text string) string {
	text = isoTimestampRe.ReplaceAllString(text, " ")
	text = weekdayDateRe.ReplaceAllString(text, " ")
	text = monthDayRe.ReplaceAllString(text, " ")
	return text
}

// weeklyHoursRe matches one "<Weekday> <time>-<time>" hours fragment, e.g.
// "Monday 11am-10pm" or "Fri: 11:30 am - 2:00 am".
var weeklyHoursRe = regexp.MustCompile(`(?i)\b(Mon(?:day)?|Tue(?:s(?:day)?)?|Wed(?:nesday)?|Thu(?:rs(?:day)?)?|Fri(?:day)?|Sat(?:urday)?|Sun(?:day)?)\b\s*:?\s*(\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s*[-–—]\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?)`)

var weekdayOrder = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// canonicalizeWeeklyHours re-sorts weekly-hours tables into Monday→Sunday
// order. Many sites render opening hours starting from "today", so a naive
// hash sees a spurious diff every day purely from rotation; sorting removes
// that false delta. Applies only when 3+ fragments match, so a lone
// "Friday 4-7pm" promo line is left alone.
func canonicalizeWeeklyHours(text string) string {
	locs := weeklyHoursRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) < 3 {
		return text
	}

	type fragment struct {
		text string
		day  int
	}
	frags := make([]fragment, 0, len(locs))
	for _, loc := range locs {
		full := text[loc[0]:loc[1]]
		day := strings.ToLower(text[loc[2]:loc[3]])
		if len(day) > 3 {
			day = day[:3]
		}
		frags = append(frags, fragment{text: full, day: weekdayOrder[day]})
	}

	sort.SliceStable(frags, func(i, j int) bool { return frags[i].day < frags[j].day })

	// Substitute the sorted fragments back into the original match slots,
	// walking matches in reverse so earlier offsets stay valid.
	out := text
	for i := len(locs) - 1; i >= 0; i-- {
		out = out[:locs[i][0]] + frags[i].text + out[locs[i][1]:]
	}
	return out
}

// Tracking/analytics and boilerplate patterns. Ordered roughly from most
// to least specific; all are volatile or meaningless page chrome.
var trackingNoiseRes = []*regexp.Regexp{
	// Analytics container/property IDs.
	regexp.MustCompile(`\bGTM-[A-Z0-9]{4,}\b`),
	regexp.MustCompile(`\bUA-\d{4,}-\d+\b`),
	regexp.MustCompile(`\bG-[A-Z0-9]{6,}\b`),
	// Tracking query parameters appearing inline in text.
	regexp.MustCompile(`[?&](?:utm_[a-z]+|fbclid|gclid|msclkid|mc_cid|mc_eid|ref|igshid)=[^\s&#]*`),
	// Store/location counts in parentheses, e.g. "(5829)".
	regexp.MustCompile(`\(\d{3,}\)`),
	// Social boilerplate.
	regexp.MustCompile(`(?i)follow us(?: on)?(?: (?:facebook|instagram|twitter|x|tiktok|yelp)[,!. ]*)*`),
	// Cookie / consent / legal boilerplate.
	regexp.MustCompile(`(?i)(?:this (?:website|site) uses cookies|we use cookies)[^.\n]*[.\n]?`),
	regexp.MustCompile(`(?i)accept all cookies|cookie (?:policy|preferences|settings)`),
	regexp.MustCompile(`(?i)protected by recaptcha(?: and the google privacy policy and terms of service apply)?`),
	regexp.MustCompile(`(?i)privacy policy|terms of (?:service|use)`),
	// Generic UI chrome.
	regexp.MustCompile(`(?i)skip to (?:main )?content|order (?:now|online)|sign in|log in|view cart|back to top`),
	// Copyright / footer lines.
	regexp.MustCompile(`(?i)(?:©|\(c\)|copyright)\s*(?:20\d{2})?[^\n]*(?:all rights reserved)?`),
	// Session/tracking token strings: long hex or url-safe blobs.
	regexp.MustCompile(`\b[A-Fa-f0-9]{32,}\b`),
	regexp.MustCompile(`\b[A-Za-z0-9_-]{40,}\b`),
}

func stripTrackingNoise(text string) string {
	for _, re := range trackingNoiseRes {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
