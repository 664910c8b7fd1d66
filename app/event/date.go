package event

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD and the compact YYYYMMDD form some vendors use.
func ParseDate(s string) (Date, error) {
	for _, layout := range []string{dateLayout, "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compact renders the date as YYYYMMDD.
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ResolveDay maps a bare day-of-month onto the closest future calendar date:
// a day on or after today's day belongs to the current month, an earlier day
// to the next month. Schedules are never published more than a month ahead.
func ResolveDay(today Date, day int) (Date, error) {
	if day < 1 || day > 31 {
		return Date{}, fmt.Errorf("day of month out of range: %d", day)
	}

	year, month := today.Year, today.Month
	if day < today.Day {
		if month == time.December {
			year, month = year+1, time.January
		} else {
			month++
		}
	}

	resolved := Date{Year: year, Month: month, Day: day}
	if DateOf(resolved.Time(time.UTC)) != resolved {
		return Date{}, fmt.Errorf("day %d does not exist in %04d-%02d", day, year, int(month))
	}
	return resolved, nil
}
