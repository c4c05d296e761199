package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status values as they are stored in the jobs sheet.
const (
	StatusReceived  Status = "Başvuru Alındı"
	StatusSiteVisit Status = "Araziye gidildi"
	StatusPreparing Status = "Evraklar hazırlanıyor"
	StatusCompleted Status = "Tamamlandı"
)

// Payment status values. PaymentUnset is the empty cell.
const (
	PaymentUnset   PaymentStatus = ""
	PaymentPending PaymentStatus = "Bekliyor"
	PaymentPaid    PaymentStatus = "Ödendi"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type (
	Status        string
	PaymentStatus string
	Role          string

	// Date is a calendar date in UTC. The zero value means the source cell
	// was empty or could not be parsed.
	Date struct {
		time.Time
	}

	// Job is one row of surveying work.
	Job struct {
		ID           string
		Date         Date
		Customer     string
		JobType      string
		PlotRef      string // Ada_Parsel
		District     string // İlçe
		Neighborhood string // Mahalle
		Status       Status
		Payment      PaymentStatus
		Fee          decimal.Decimal
		// Extra keeps columns this code does not know about so they survive
		// a read-modify-write cycle.
		Extra map[string]string
	}

	// EditedJob is a row of an edited view with its deletion flag.
	EditedJob struct {
		Job
		Delete bool
	}

	User struct {
		Username string
		Password string
		Role     Role
	}
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyUsername      = errors.New("empty username")
	ErrEmptyPassword      = errors.New("empty password")
)

// Statuses lists the closed status set in workflow order.
var Statuses = []Status{StatusReceived, StatusSiteVisit, StatusPreparing, StatusCompleted}

// PaymentStatuses lists the selectable payment states.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

func (p PaymentStatus) Valid() bool {
	return p == PaymentUnset || p == PaymentPending || p == PaymentPaid
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true if the date is missing.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Year returns the year, or 0 for an empty date.
func (d Date) Year() int {
	if d.IsEmpty() {
		return 0
	}
	return d.Time.Year()
}

// Month returns the month 1-12, or 0 for an empty date.
func (d Date) Month() int {
	if d.IsEmpty() {
		return 0
	}
	return int(d.Time.Month())
}

// MonthKey returns "YYYY-MM", or "" for an empty date.
func (d Date) MonthKey() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01")
}

// String renders the canonical storage form (2006-01-02), or "" when empty.
func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display renders the date the way the office reads it (02.01.2006).
func (d Date) Display() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("02.01.2006")
}

// Open reports whether the job still has work left.
func (j Job) Open() bool {
	return j.Status != StatusCompleted
}
