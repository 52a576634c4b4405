package queryengine

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRange is an inclusive time window resolved from a question.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Patterns for date resolution
var (
	explicitYearPattern = regexp.MustCompile(`\b(20\d{2})\b`)
	lastWindowPattern   = regexp.MustCompile(`last (\d+) (month|week|day)s?`)

	// Free-text date forms the fallback parser recognizes. A bare ordinal
	// ("16th running of ...") is intentionally not a date form.
	monthDayPattern = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(20\d{2}))?\b`)
	dayMonthPattern = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b(?:,?\s+(20\d{2}))?`)
	isoDatePattern  = regexp.MustCompile(`\b(20\d{2})-(\d{1,2})-(\d{1,2})\b`)
	slashPattern    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
)

// allTimePhrases denote the entire history; their presence disables filtering.
var allTimePhrases = []string{"all time", "everything", "all activities", "entire", "complete"}

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ResolveDateRange parses natural language dates from a question.
// A nil result means no explicit window: either the question asked for the
// full history, or nothing date-like was found and the caller should fall
// through to its recency defaults.
func ResolveDateRange(question string, now time.Time) *DateRange {
	questionLower := strings.ToLower(question)

	// Explicit years win over everything else. Year ranges like
	// "between 2021 and 2023" collapse to min/max of all detected years.
	if years := explicitYearPattern.FindAllString(question, -1); len(years) > 0 {
		minYear, maxYear := 9999, 0
		for _, y := range years {
			year, _ := strconv.Atoi(y)
			if year < minYear {
				minYear = year
			}
			if year > maxYear {
				maxYear = year
			}
		}
		return &DateRange{
			Start: time.Date(minYear, 1, 1, 0, 0, 0, 0, now.Location()),
			End:   time.Date(maxYear, 12, 31, 23, 59, 59, 0, now.Location()),
		}
	}

	for _, phrase := range allTimePhrases {
		if strings.Contains(questionLower, phrase) {
			return nil
		}
	}

	if strings.Contains(questionLower, "last year") {
		return &DateRange{
			Start: time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, now.Location()),
			End:   time.Date(now.Year()-1, 12, 31, 23, 59, 59, 0, now.Location()),
		}
	}
	if strings.Contains(questionLower, "this year") || strings.Contains(questionLower, "current year") {
		return &DateRange{
			Start: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()),
			End:   time.Date(now.Year(), 12, 31, 23, 59, 59, 0, now.Location()),
		}
	}

	if m := lastWindowPattern.FindStringSubmatch(questionLower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			var span time.Duration
			switch m[2] {
			case "month":
				// Months are deliberately approximated as 30 days each so
				// that identical questions always resolve the same window.
				span = time.Duration(n) * 30 * 24 * time.Hour
			case "week":
				span = time.Duration(n) * 7 * 24 * time.Hour
			case "day":
				span = time.Duration(n) * 24 * time.Hour
			}
			return &DateRange{Start: now.Add(-span), End: now}
		}
	}

	if date := ParseSpecificDate(questionLower, now); date != nil {
		return &DateRange{
			Start: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location()),
			End:   time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, now.Location()),
		}
	}

	return nil
}

// ParseSpecificDate recovers a single calendar date from free text, biased
// toward the past: a date without a year resolves to its most recent
// occurrence not after now. Returns nil when nothing date-like is present;
// an unparseable candidate is equivalent to no match, never an error.
func ParseSpecificDate(question string, now time.Time) *time.Time {
	questionLower := strings.ToLower(question)

	if m := isoDatePattern.FindStringSubmatch(questionLower); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), now)
	}
	if m := slashPattern.FindStringSubmatch(questionLower); m != nil {
		// M/D/YYYY
		return buildDate(atoi(m[3]), atoi(m[1]), atoi(m[2]), now)
	}
	if m := monthDayPattern.FindStringSubmatch(questionLower); m != nil {
		month, ok := monthsByName[strings.TrimSuffix(m[1], ".")]
		if !ok {
			return nil
		}
		return resolvePastBiased(month, atoi(m[2]), m[3], now)
	}
	if m := dayMonthPattern.FindStringSubmatch(questionLower); m != nil {
		month, ok := monthsByName[m[2]]
		if !ok {
			return nil
		}
		return resolvePastBiased(month, atoi(m[1]), m[3], now)
	}

	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func buildDate(year, month, day int, now time.Time) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// Reject normalization artifacts like Feb 31 -> Mar 3.
	if int(date.Month()) != month || date.Day() != day {
		return nil
	}
	return &date
}

func resolvePastBiased(month time.Month, day int, yearText string, now time.Time) *time.Time {
	if yearText != "" {
		return buildDate(atoi(yearText), int(month), day, now)
	}
	date := buildDate(now.Year(), int(month), day, now)
	if date == nil {
		return nil
	}
	if date.After(now) {
		return buildDate(now.Year()-1, int(month), day, now)
	}
	return date
}
