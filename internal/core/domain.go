package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// MaxDescriptionLength bounds the free text stored with an expense.
const MaxDescriptionLength = 200

type (
	Role string

	// Date is a calendar day. The zero value means "no date".
	Date struct {
		time.Time
	}

	Expense struct {
		ID          int64               `json:"id,omitempty"` // zero until persisted
		Category    string              `json:"category"`
		Price       decimal.NullDecimal `json:"price"`
		Description string              `json:"description,omitempty"`
		Date        Date                `json:"date"`
		PersonID    int64               `json:"personId"`
	}

	// Person is the authenticated identity owning the session.
	Person struct {
		ID    int64  `json:"id"`
		Role  Role   `json:"role"`
		Token string `json:"token,omitempty"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

const dateLayout = "2006-01-02"

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// CompareDays orders two dates by calendar day, ignoring time of day.
func CompareDays(a, b Date) int {
	switch {
	case a.Year() != b.Year():
		return cmpInt(a.Year(), b.Year())
	case a.Month() != b.Month():
		return cmpInt(a.Month(), b.Month())
	default:
		return cmpInt(a.Day(), b.Day())
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// HasID reports whether the expense has been persisted.
func (e Expense) HasID() bool {
	return e.ID != 0
}

// Amount returns the price, or zero when it is absent.
func (e Expense) Amount() decimal.Decimal {
	if !e.Price.Valid {
		return decimal.Zero
	}
	return e.Price.Decimal
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if !e.Price.Valid || e.Price.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !e.Date.IsZero() {
		if err := e.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsZero reports whether p carries no identity.
func (p Person) IsZero() bool {
	return p.ID == 0
}

func (p Person) IsAdmin() bool {
	return p.Role == RoleAdmin
}
