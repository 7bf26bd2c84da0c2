package transform

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Pure per-row transformation rules shared by the production and warehouse
// loads. Keeping them out of SQL lets the buckets be tested without a
// database and reused across both loaders.

// TitleCase capitalizes the first letter of every word and lowercases the
// rest, matching Postgres INITCAP semantics.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}

	return b.String()
}

// NormalizeEmail lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// CustomerSegment buckets an age group into three segments
func CustomerSegment(ageGroup string) string {
	switch ageGroup {
	case "18-25", "26-35":
		return "Young"
	case "36-45":
		return "Mid-age"
	default:
		return "Senior"
	}
}

// PriceRange buckets a product price
func PriceRange(price float64) string {
	switch {
	case price < 100:
		return "Budget"
	case price <= 500:
		return "Mid-range"
	default:
		return "Premium"
	}
}

// PaymentType classifies a payment method
func PaymentType(method string) string {
	switch method {
	case "UPI", "Net Banking":
		return "Online"
	default:
		return "Card/COD"
	}
}

// DateKey renders a date as its 8-digit YYYYMMDD integer key
func DateKey(d time.Time) int {
	key, _ := strconv.Atoi(d.Format("20060102"))
	return key
}

// IsWeekend reports whether the date falls on Saturday or Sunday
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DateParts holds the calendar attributes of one dim_date row
type DateParts struct {
	DateKey    int
	FullDate   time.Time
	Year       int
	Quarter    int
	Month      int
	Day        int
	MonthName  string
	DayName    string
	WeekOfYear int
	IsWeekend  bool
}

// CalendarParts computes the dim_date attributes for a date
func CalendarParts(d time.Time) DateParts {
	_, week := d.ISOWeek()
	return DateParts{
		DateKey:    DateKey(d),
		FullDate:   d,
		Year:       d.Year(),
		Quarter:    (int(d.Month())-1)/3 + 1,
		Month:      int(d.Month()),
		Day:        d.Day(),
		MonthName:  d.Month().String(),
		DayName:    d.Weekday().String(),
		WeekOfYear: week,
		IsWeekend:  IsWeekend(d),
	}
}
