package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is the canonical weekday enumeration used by the scheduling core, Monday=0 .. Sunday=6.
// Localized day names never cross into this package.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// AllWeekdays lists Monday through Sunday in order.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf converts the standard library weekday (Sunday=0) to the canonical one.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// IsValid returns true for Monday..Sunday.
func (w Weekday) IsValid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.IsValid() {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// ParseWeekday accepts the canonical lower-case English identifier.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		if name == s {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}

func (w Weekday) MarshalText() ([]byte, error) {
	if !w.IsValid() {
		return nil, fmt.Errorf("invalid weekday: %d", int(w))
	}
	return []byte(w.String()), nil
}

func (w *Weekday) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// MinutesPerDay is the exclusive upper bound of a wall-clock day; 24:00 is a valid end time.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time in minutes since midnight, 00:00 through 24:00.
type TimeOfDay int

// At builds a TimeOfDay from hours and minutes without validation.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return At(h, m), nil
}

// IsValid returns true within 00:00..24:00.
func (t TimeOfDay) IsValid() bool {
	return t >= 0 && t <= MinutesPerDay
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

// Add returns t shifted by minutes. The result may fall outside the day.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid time of day: %d minutes", int(t))
	}
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateLayout is the wire format of Date.
const DateLayout = "2006-01-02"

// Date is a civil calendar date with no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a normalized Date (e.g. Jan 32 becomes Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns the instant of wall-clock t on d in loc.
func (d Date) At(t TimeOfDay, loc *time.Location) time.Time {
	return d.Time(loc).Add(time.Duration(t) * time.Minute)
}

// Weekday returns the canonical weekday of d.
func (d Date) Weekday() Weekday {
	return WeekdayOf(d.Time(time.UTC).Weekday())
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.Time(time.UTC).Compare(o.Time(time.UTC))
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// DaysUntil returns the whole days from d to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time(time.UTC).Sub(d.Time(time.UTC)).Hours() / 24)
}

// Through returns every date from d to last inclusive, or nil when last is before d.
func (d Date) Through(last Date) []Date {
	if last.Before(d) {
		return nil
	}
	days := make([]Date, 0, d.DaysUntil(last)+1)
	for cur := d; !cur.After(last); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (d Date) String() string {
	return d.Time(time.UTC).Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
