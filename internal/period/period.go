// Package period maps a budget period and a reference month onto a calendar
// window and onto the (year, month) key budgets are stored under.
//
// Every period is one of the models.BudgetPeriod constants and each has
// exactly one resolver registered in the resolvers table; an unknown period
// never resolves.
package period

import (
	"time"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
)

const (
	minYear = 1
	maxYear = 9999
)

// Window is a calendar range of whole days. End is the last day included
// in the window, not the first day after it.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Until returns the first instant after the window, for half-open queries.
func (w Window) Until() time.Time {
	return w.End.AddDate(0, 0, 1)
}

// Contains reports whether t falls on one of the window's days.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && d.Before(w.Until())
}

type resolver func(year, month int) (Window, *int, error)

var resolvers = map[models.BudgetPeriod]resolver{
	models.BudgetPeriodMonthly:   resolveMonthly,
	models.BudgetPeriodQuarterly: resolveQuarterly,
	models.BudgetPeriodYearly:    resolveYearly,
}

// Types lists the supported periods in display order.
func Types() []models.BudgetPeriod {
	return []models.BudgetPeriod{
		models.BudgetPeriodMonthly,
		models.BudgetPeriodQuarterly,
		models.BudgetPeriodYearly,
	}
}

// Parse validates a period name.
func Parse(s string) (models.BudgetPeriod, error) {
	p := models.BudgetPeriod(s)
	if _, ok := resolvers[p]; !ok {
		return "", apperrors.ErrInvalidPeriod
	}
	return p, nil
}

// Resolve returns the window for period p that contains the given month of
// year, together with the month value a budget for that window stores.
// Yearly periods ignore month and store nil.
func Resolve(p models.BudgetPeriod, year, month int) (Window, *int, error) {
	r, ok := resolvers[p]
	if !ok {
		return Window{}, nil, apperrors.ErrInvalidPeriod
	}
	if year < minYear || year > maxYear {
		return Window{}, nil, apperrors.ErrInvalidYear
	}
	return r(year, month)
}

// ForBudget resolves the window a stored budget covers. A missing month on a
// monthly or quarterly row is read as January.
func ForBudget(b *models.Budget) (Window, error) {
	month := 1
	if b.Month != nil {
		month = *b.Month
	}
	w, _, err := Resolve(b.Period, b.Year, month)
	return w, err
}

// MonthStart returns midnight UTC on the first day of the month.
func MonthStart(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func resolveMonthly(year, month int) (Window, *int, error) {
	if month < 1 || month > 12 {
		return Window{}, nil, apperrors.ErrInvalidMonth
	}
	start := MonthStart(year, month)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}, &month, nil
}

func resolveQuarterly(year, month int) (Window, *int, error) {
	if month < 1 || month > 12 {
		return Window{}, nil, apperrors.ErrInvalidMonth
	}
	first := ((month-1)/3)*3 + 1
	start := MonthStart(year, first)
	return Window{Start: start, End: start.AddDate(0, 3, -1)}, &first, nil
}

func resolveYearly(year, _ int) (Window, *int, error) {
	start := MonthStart(year, 1)
	return Window{Start: start, End: start.AddDate(1, 0, -1)}, nil, nil
}
