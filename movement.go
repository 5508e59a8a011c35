package bankxmov

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	Transferencia  MovementType = "TRANSFERENCIA"
	Bizum          MovementType = "BIZUM"
	InteresMensual MovementType = "INTERESMENSUAL"
	Nomina         MovementType = "NOMINA"
	Pago           MovementType = "PAGO"
	Ingreso        MovementType = "INGRESO"
	Extraccion     MovementType = "EXTRACCION"
)

// ParseMovementType matches s against the known movement types, ignoring case and
// surrounding whitespace.
func ParseMovementType(s string) (MovementType, bool) {
	mt := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := movementKinds[mt]
	return mt, ok
}

type AccountType struct {
	Name     string          `json:"name"`
	Interest decimal.Decimal `json:"interest"`
}

func (at AccountType) EarnsInterest() bool {
	return at.Interest.IsPositive()
}

type Account struct {
	PubID     snowflake.ID    `json:"id"`
	IBAN      string          `json:"iban"`
	Owner     string          `json:"owner"`
	ClientDNI string          `json:"clientDni"`
	Balance   decimal.Decimal `json:"balance"`
	Type      AccountType     `json:"accountType"`
	Deleted   bool            `json:"deleted"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Card struct {
	Number      string    `json:"number"`
	Expiration  time.Time `json:"expiration"`
	CVV         string    `json:"-"`
	AccountIBAN string    `json:"accountIban"`
	Active      bool      `json:"active"`
	Deleted     bool      `json:"deleted"`

	DailyLimit   decimal.Decimal `json:"dailyLimit"`
	WeeklyLimit  decimal.Decimal `json:"weeklyLimit"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`

	SpentToday     decimal.Decimal `json:"spentToday"`
	SpentThisWeek  decimal.Decimal `json:"spentThisWeek"`
	SpentThisMonth decimal.Decimal `json:"spentThisMonth"`

	// LastReset is the day the counters were last evaluated for a period rollover.
	LastReset time.Time `json:"lastReset"`
}

// Expired reports whether the card's expiration day is before the day of now.
func (c *Card) Expired(now time.Time) bool {
	exp := calendarDay(c.Expiration, now.Location())
	return exp.Before(startOfDay(now))
}

type Movement struct {
	ID              snowflake.ID    `json:"id"`
	Type            MovementType    `json:"type"`
	ReferenceIBAN   string          `json:"ibanReference,omitempty"`
	DestinationIBAN string          `json:"ibanDestination,omitempty"`
	CardNumber      string          `json:"cardNumber,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"createdAt"`
	Deleted         bool            `json:"deleted"`
}

// Involves reports whether iban is the reference or destination account of m.
func (m *Movement) Involves(iban string) bool {
	return iban != "" && (m.ReferenceIBAN == iban || m.DestinationIBAN == iban)
}

// SignedAmount is m's amount as seen from iban's balance.
func (m *Movement) SignedAmount(iban string) decimal.Decimal {
	eff := movementKinds[m.Type].effect
	switch iban {
	case m.ReferenceIBAN:
		return signed(m.Amount, eff.reference)
	case m.DestinationIBAN:
		return signed(m.Amount, eff.destination)
	}
	return decimal.Zero
}

// Snapshot holds the locked state a movement is validated against and applied to.
// A nil pointer means the record was not found.
type Snapshot struct {
	Reference   *Account
	Destination *Account
	Card        *Card
}

type CreateMovementReq struct {
	Type            string          `json:"type"`
	ReferenceIBAN   string          `json:"ibanReference"`
	DestinationIBAN string          `json:"ibanDestination"`
	Amount          decimal.Decimal `json:"amount"`
	CardNumber      string          `json:"cardNumber"`
}

type UpdateMovementReq struct {
	ID       snowflake.ID
	Username string
	CreateMovementReq
}

type CancelMovementReq struct {
	ID       snowflake.ID
	Username string
}

type AccrueInterestReq struct {
	DestinationIBAN string          `json:"ibanDestination"`
	Amount          decimal.Decimal `json:"amount"`
}

type MovementFilter struct {
	Type      string
	IBAN      string
	ClientDNI string
	Date      *time.Time
	Deleted   *bool
	Page      int
	Size      int
	Sort      string
}

type MovementPage struct {
	Content       []Movement `json:"content"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalElements int        `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
}

func newMovementPage(content []Movement, total int, f MovementFilter) *MovementPage {
	pages := 0
	if f.Size > 0 {
		pages = (total + f.Size - 1) / f.Size
	}
	if content == nil {
		content = []Movement{}
	}
	return &MovementPage{
		Content:       content,
		Page:          f.Page,
		Size:          f.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// calendarDay reads t as a date and places it at midnight in loc. DATE columns decode as
// UTC midnight, so converting them with In would shift the day west of UTC.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// currencyScale is the number of decimal places an amount may carry.
const currencyScale = 2

func validAmount(amount decimal.Decimal) (string, bool) {
	if !amount.IsPositive() {
		return "amount must be greater than zero", false
	}
	if !amount.Equal(amount.Truncate(currencyScale)) {
		return "amount must have at most 2 decimal places", false
	}
	return "", true
}

// maskCardNumber keeps the last four digits.
func maskCardNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

var sortFields = map[string]bool{
	"createdAt": true,
	"amount":    true,
	"type":      true,
	"id":        true,
}

// ParseSort reads "field[,asc|desc]". Unknown fields fall back to newest first.
func ParseSort(s string) (field string, desc bool) {
	field, dir, _ := strings.Cut(strings.TrimSpace(s), ",")
	if !sortFields[field] {
		return "createdAt", true
	}
	return field, strings.EqualFold(strings.TrimSpace(dir), "desc")
}

func validSort(s string) bool {
	if s == "" {
		return true
	}
	field, dir, _ := strings.Cut(strings.TrimSpace(s), ",")
	dir = strings.ToLower(strings.TrimSpace(dir))
	return sortFields[field] && (dir == "" || dir == "asc" || dir == "desc")
}

func movementLess(a, b *Movement, field string) bool {
	switch field {
	case "amount":
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.LessThan(b.Amount)
		}
	case "type":
		if a.Type != b.Type {
			return a.Type < b.Type
		}
	case "createdAt":
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}
