package internal

import (
	"fmt"
	"time"
)

// YearMonth is a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) YearMonth {
	t = t.UTC()
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth accepts "YYYY-MM" as well as a full "YYYY-MM-DD" date.
func ParseYearMonth(s string) (YearMonth, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return YearMonth{}, fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidMonth, s)
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m YearMonth) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// index is the month count since year zero; consecutive months differ by one.
func (m YearMonth) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Distance is the absolute number of whole months between m and o.
func (m YearMonth) Distance(o YearMonth) int {
	d := m.index() - o.index()
	if d < 0 {
		return -d
	}
	return d
}

// Start returns the first instant of the month in UTC.
func (m YearMonth) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthsAgo subtracts n calendar months from m. Negative n moves forward.
func MonthsAgo(m YearMonth, n int) YearMonth {
	total := m.index() - n
	year := floorDiv(total, 12)
	return YearMonth{Year: year, Month: time.Month(total-year*12) + 1}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
