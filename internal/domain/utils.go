package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// secondsCutoff separates second-granularity epoch values from millisecond ones.
// Anything below it (year ~2286 in seconds) is read as seconds.
const secondsCutoff = 10_000_000_000

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate returns a list of human-readable problems with t. An empty list
// means the transaction can be persisted.
func Validate(t *Transaction) []string {
	if t == nil {
		return []string{"Transaction is required"}
	}

	var errs []string
	if t.ID == "" {
		errs = append(errs, "Transaction ID is required")
	}
	if t.User == "" {
		errs = append(errs, "User is required")
	}
	if t.Source == "" {
		errs = append(errs, "Source is required")
	}
	if t.Date.IsZero() {
		errs = append(errs, "Date is required")
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		errs = append(errs, "Amount must be a valid number")
	}
	if t.Currency == "" {
		errs = append(errs, "Currency is required")
	} else if len(t.Currency) != 3 {
		errs = append(errs, "Currency must be a 3-letter code (e.g., EUR, USD)")
	}
	if t.Usage == "" {
		errs = append(errs, "Usage description is required")
	}
	return errs
}

// ParseDate converts the shapes a date arrives in over the request boundary
// into a time.Time. Numbers below 1e10 are epoch seconds, larger ones epoch
// milliseconds.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("ParseDate: nil time")
		}
		return *d, nil
	case int:
		return fromEpochNumber(float64(d)), nil
	case int64:
		return fromEpochNumber(float64(d)), nil
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, fmt.Errorf("ParseDate: invalid number %v", d)
		}
		return fromEpochNumber(d), nil
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("ParseDate: %w", err)
		}
		return fromEpochNumber(f), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("ParseDate: invalid date format: %q", d)
	default:
		return time.Time{}, fmt.Errorf("ParseDate: unsupported type %T", v)
	}
}

func fromEpochNumber(n float64) time.Time {
	if math.Abs(n) < secondsCutoff {
		return time.Unix(int64(n), 0).UTC()
	}
	return time.UnixMilli(int64(n)).UTC()
}

// DateToUnixSeconds truncates t to whole seconds since the epoch.
func DateToUnixSeconds(t time.Time) int64 {
	return t.Unix()
}

// UnixSecondsToDate is the inverse of DateToUnixSeconds. The result is in UTC.
func UnixSecondsToDate(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

// FormatCurrency renders amount for display using the currency's standard
// rounding. Unknown codes fall back to "<amount> <code>".
func FormatCurrency(amount float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Sprintf("%s %s", decimal.NewFromFloat(amount).String(), code)
	}

	scale, _ := currency.Standard.Rounding(unit)
	rounded, _ := decimal.NewFromFloat(amount).Round(int32(scale)).Float64()

	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprint(currency.Symbol(unit.Amount(rounded)))
}

// Period names a calendar window understood by DateRangeFor.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// DateRange is an inclusive window. Nil bounds are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// DateRangeFor returns the window for period relative to now, in now's
// location. Weeks start on Sunday. Unknown periods behave like PeriodAll.
func DateRangeFor(period Period, now time.Time) DateRange {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfDay := func(d time.Time) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Millisecond), loc)
	}

	var start, end time.Time
	switch period {
	case PeriodToday:
		start, end = today, endOfDay(today)
	case PeriodWeek:
		start = today.AddDate(0, 0, -int(today.Weekday()))
		end = endOfDay(start.AddDate(0, 0, 6))
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = endOfDay(start.AddDate(0, 1, -1))
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		end = endOfDay(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, loc))
	default:
		return DateRange{}
	}
	return DateRange{Start: &start, End: &end}
}
