package services

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// yearFromDateString extracts a four-digit year from a free-form provider
// date string ("2021-03-01", "March 2021", "2021").
func yearFromDateString(date string) int {
	match := yearPattern.FindString(date)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// splitPersonName splits a display name into first/last parts the way the
// provider wire formats expect. Everything before the final space is the
// first name; single-token names become last names.
func splitPersonName(name string) mendeleyPerson {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return mendeleyPerson{LastName: name}
	}
	return mendeleyPerson{
		FirstName: strings.TrimSpace(name[:idx]),
		LastName:  strings.TrimSpace(name[idx+1:]),
	}
}

// normalizeJournalName collapses whitespace so equivalent journal strings
// from different providers compare equal.
func normalizeJournalName(journal string) string {
	return strings.Join(strings.Fields(journal), " ")
}

// normalizeKeywords trims and de-duplicates while preserving first-seen order.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
