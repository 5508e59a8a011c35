package bankxmov

import (
	"time"

	"github.com/shopspring/decimal"
)

var errLimitExceeded = ErrForbidden{Reason: "limit exceeded"}

type period int

const (
	periodDay period = iota
	periodWeek
	periodMonth
)

// counterState is where a spend counter stands relative to the current period.
// A Stale counter transitions to Reset (zeroed) on the next touch of its card.
type counterState int

const (
	counterFresh counterState = iota
	counterStale
)

type counter struct {
	period period
	spent  *decimal.Decimal
	limit  decimal.Decimal
}

// CardLimits tracks the daily, weekly and monthly spend counters of cards. Counters are
// reset lazily, when a card is touched in a new period, never by a background sweep.
type CardLimits struct {
	FirstDayOfWeek time.Weekday
	Location       *time.Location
}

func NewCardLimits(firstDay time.Weekday, loc *time.Location) *CardLimits {
	if loc == nil {
		loc = time.UTC
	}
	return &CardLimits{
		FirstDayOfWeek: firstDay,
		Location:       loc,
	}
}

func (cl *CardLimits) counters(c *Card) [3]counter {
	return [3]counter{
		{period: periodDay, spent: &c.SpentToday, limit: c.DailyLimit},
		{period: periodWeek, spent: &c.SpentThisWeek, limit: c.WeeklyLimit},
		{period: periodMonth, spent: &c.SpentThisMonth, limit: c.MonthlyLimit},
	}
}

// periodStart is the first instant of the period p containing t.
func (cl *CardLimits) periodStart(p period, t time.Time) time.Time {
	day := startOfDay(t.In(cl.Location))
	switch p {
	case periodWeek:
		offset := (int(day.Weekday()) - int(cl.FirstDayOfWeek) + 7) % 7
		return day.AddDate(0, 0, -offset)
	case periodMonth:
		y, m, _ := day.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, cl.Location)
	}
	return day
}

func (cl *CardLimits) state(p period, lastReset, now time.Time) counterState {
	if lastReset.IsZero() {
		return counterStale
	}
	last := calendarDay(lastReset, cl.Location)
	if last.Before(cl.periodStart(p, now)) {
		return counterStale
	}
	return counterFresh
}

// ResetDue zeroes every counter whose period has rolled over since the card was last
// evaluated and stamps the card with today's date. It reports whether any counter was reset.
func (cl *CardLimits) ResetDue(c *Card, now time.Time) bool {
	reset := false
	for _, ctr := range cl.counters(c) {
		if cl.state(ctr.period, c.LastReset, now) == counterStale {
			*ctr.spent = decimal.Zero
			reset = true
		}
	}
	c.LastReset = startOfDay(now.In(cl.Location))
	return reset
}

// Check reports whether spending amount on c at now would keep every counter within its
// ceiling. The card is not modified; due resets are evaluated on a copy.
func (cl *CardLimits) Check(c Card, amount decimal.Decimal, now time.Time) error {
	cl.ResetDue(&c, now)
	for _, ctr := range cl.counters(&c) {
		if ctr.spent.Add(amount).GreaterThan(ctr.limit) {
			return errLimitExceeded
		}
	}
	return nil
}

// ApplyDelta counts amount against all three windows.
func (cl *CardLimits) ApplyDelta(c *Card, amount decimal.Decimal) {
	for _, ctr := range cl.counters(c) {
		*ctr.spent = ctr.spent.Add(amount)
	}
}

// CheckAndReserve resets due counters, checks the ceilings and counts amount, as one unit.
// On rejection the card is left as it was.
func (cl *CardLimits) CheckAndReserve(c *Card, amount decimal.Decimal, now time.Time) error {
	if err := cl.Check(*c, amount, now); err != nil {
		return err
	}
	cl.Reserve(c, amount, now)
	return nil
}

// Reserve counts amount without checking ceilings, for credits that still count as spend.
func (cl *CardLimits) Reserve(c *Card, amount decimal.Decimal, now time.Time) {
	cl.ResetDue(c, now)
	cl.ApplyDelta(c, amount)
}
