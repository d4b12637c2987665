package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"financial_underwriting/pkg/models"
)

var fiscalLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 January, 2006",
	"2 Jan 2006",
	"2006/01/02",
}

var (
	bareYear = regexp.MustCompile(`^(\d{4})$`)
	// "FY 2023-24", "2023-2024", "FY2023/24"
	yearSpan = regexp.MustCompile(`(?i)^(?:fy\s*)?(\d{4})\s*[-/–]\s*(\d{2}|\d{4})$`)
	ordinal  = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
)

// ParseFiscalYearEnd reads the statement date in the forms the extraction
// model produces. A bare year or a year span ends on March 31.
func ParseFiscalYearEnd(v interface{}) (models.Date, bool) {
	switch t := v.(type) {
	case float64:
		if t >= 1900 && t <= 2200 && t == float64(int(t)) {
			return models.NewDate(int(t), time.March, 31), true
		}
		return models.Date{}, false
	case string:
		return parseFiscalText(t)
	}
	return models.Date{}, false
}

func parseFiscalText(s string) (models.Date, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "As at "), "as at ")
	s = ordinal.ReplaceAllString(s, "$1")
	if s == "" {
		return models.Date{}, false
	}
	if m := bareYear.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return models.NewDate(y, time.March, 31), true
	}
	if m := yearSpan.FindStringSubmatch(s); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if len(m[2]) == 2 {
			end += start / 100 * 100
			if end < start {
				end += 100
			}
		}
		if end == start+1 {
			return models.NewDate(end, time.March, 31), true
		}
		return models.Date{}, false
	}
	for _, layout := range fiscalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}
	return models.Date{}, false
}
