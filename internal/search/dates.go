package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date keywords resolve to the current instant/day/month/year and accept
// ±N integer offsets ("TODAY-7", "NOW+10"). Matching is case-insensitive.
var dateKeywordRe = regexp.MustCompile(`(?i)^(now|today|month|year)([+-]\d+)?$`)

// resolveDateKeyword turns a date keyword token into its literal form:
// NOW → "2006-01-02 15:04:05", TODAY → "2006-01-02", MONTH → "2006-01",
// YEAR → "2006". The bool reports whether the token was a date keyword.
func resolveDateKeyword(tok string, now time.Time) (string, bool) {
	m := dateKeywordRe.FindStringSubmatch(tok)
	if m == nil {
		return "", false
	}

	offset := 0
	if m[2] != "" {
		// The regexp guarantees a valid signed integer.
		offset, _ = strconv.Atoi(m[2])
	}

	switch strings.ToLower(m[1]) {
	case "now":
		return now.Add(time.Duration(offset) * time.Second).Format("2006-01-02 15:04:05"), true
	case "today":
		return now.AddDate(0, 0, offset).Format("2006-01-02"), true
	case "month":
		return now.AddDate(0, offset, 0).Format("2006-01"), true
	case "year":
		return now.AddDate(offset, 0, 0).Format("2006"), true
	}
	return "", false
}

// looksLikeDate reports whether a value is in one of the resolved date
// literal shapes, which compare lexicographically in chronological order.
var looksLikeDate = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2}( \d{2}:\d{2}:\d{2})?)?)?$`).MatchString
