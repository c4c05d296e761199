package core

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lihkab/internal/sheets"
)

// Column headers of the jobs sheet.
const (
	ColID           = "ID"
	ColDate         = "Tarih"
	ColCustomer     = "Müşteri"
	ColJobType      = "İş Türü"
	ColPlotRef      = "Ada_Parsel"
	ColDistrict     = "İlçe"
	ColNeighborhood = "Mahalle"
	ColStatus       = "Durum"
	ColPayment      = "Ödeme Durumu"
	ColFee          = "Ücret"
)

// Column headers of the users sheet.
const (
	ColUsername = "username"
	ColPassword = "password"
	ColRole     = "role"
)

// DateLayout is the canonical storage form of a date cell.
const DateLayout = "2006-01-02"

// JobColumns is the header order used when a jobs table is written.
var JobColumns = []string{
	ColID, ColDate, ColCustomer, ColJobType, ColPlotRef,
	ColDistrict, ColNeighborhood, ColStatus, ColPayment, ColFee,
}

// UserColumns is the header order of the users table.
var UserColumns = []string{ColUsername, ColPassword, ColRole}

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02.01.2006",
	"2.1.2006",
	"2006/01/02",
	"02/01/2006",
}

// spreadsheet serial day 0
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	minSerial = 10000   // 1927-05-18
	maxSerial = 2958466 // 10000-01-01
)

// dotThousands matches Turkish thousands grouping without decimals: 1.500, 12.000.000
var dotThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParseDate reads a date cell. It never fails: anything it cannot read
// yields an empty Date and false.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	// Serial numbers show up when a cell was typed as a date but read raw.
	// Anything below minSerial is more likely a year or a count.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minSerial && f < maxSerial {
		days := int(math.Floor(f))
		return DateOf(serialEpoch.AddDate(0, 0, days)), true
	}
	return Date{}, false
}

// ParseFee reads a currency cell into a non-negative decimal. Blank,
// malformed or negative input gives zero.
//
// Examples:
//
//	ParseFee("1500")      -> 1500
//	ParseFee("1.500")     -> 1500
//	ParseFee("1.500,50")  -> 1500.5
//	ParseFee("1,500.50")  -> 1500.5
//	ParseFee("750,5 TL")  -> 750.5
func ParseFee(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	for _, junk := range []string{"TL", "₺", "\u00a0", " "} {
		s = strings.ReplaceAll(s, junk, "")
	}
	if s == "" {
		return decimal.Zero
	}
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		// A lone comma followed by one or two digits is a decimal comma.
		if strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case dotThousands.MatchString(s), strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return canonicalFee(d)
}

// canonicalFee gives equal amounts an identical representation so that
// 1500, 1500.0 and 1500.00 compare equal field by field.
func canonicalFee(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	c, err := decimal.NewFromString(d.String())
	if err != nil {
		return d
	}
	return c
}

// ParseStatus maps a cell onto the closed status set, defaulting to
// StatusReceived. Only surrounding whitespace is forgiven; "tamamlandı" is
// not Tamamlandı.
func ParseStatus(s string) Status {
	s = strings.TrimSpace(s)
	for _, v := range Statuses {
		if s == string(v) {
			return v
		}
	}
	return StatusReceived
}

// ParsePayment maps a cell onto the payment states; unknown values are unset.
func ParsePayment(s string) PaymentStatus {
	s = strings.TrimSpace(s)
	for _, v := range PaymentStatuses {
		if s == string(v) {
			return v
		}
	}
	return PaymentUnset
}

// ParseRole maps a cell onto a role, defaulting to RoleUser.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return RoleUser
}

// NormalizeJobs turns a raw jobs table into typed records. Malformed cells
// degrade to defaults; the function never fails.
func NormalizeJobs(t sheets.Table) []Job {
	known := make(map[string]bool, len(JobColumns))
	for _, c := range JobColumns {
		known[c] = true
	}
	jobs := make([]Job, 0, len(t.Rows))
	for _, row := range t.Rows {
		date, _ := ParseDate(row[ColDate])
		j := Job{
			ID:           strings.TrimSpace(row[ColID]),
			Date:         date,
			Customer:     row[ColCustomer],
			JobType:      row[ColJobType],
			PlotRef:      row[ColPlotRef],
			District:     row[ColDistrict],
			Neighborhood: row[ColNeighborhood],
			Status:       Status(row[ColStatus]),
			Payment:      PaymentStatus(row[ColPayment]),
			Fee:          ParseFee(row[ColFee]),
		}
		for _, col := range t.Header {
			if known[col] || col == "" {
				continue
			}
			if j.Extra == nil {
				j.Extra = make(map[string]string)
			}
			j.Extra[col] = strings.TrimSpace(row[col])
		}
		jobs = append(jobs, NormalizeJob(j))
	}
	return assignIDs(jobs)
}

// NormalizeJob applies the same repairs to an already typed record:
// trimmed text, closed-set status and payment, non-negative fee.
func NormalizeJob(j Job) Job {
	j.ID = strings.TrimSpace(j.ID)
	j.Customer = strings.TrimSpace(j.Customer)
	j.JobType = strings.TrimSpace(j.JobType)
	j.PlotRef = strings.TrimSpace(j.PlotRef)
	j.District = strings.TrimSpace(j.District)
	j.Neighborhood = strings.TrimSpace(j.Neighborhood)
	j.Status = ParseStatus(string(j.Status))
	j.Payment = ParsePayment(string(j.Payment))
	if j.Fee.IsNegative() {
		j.Fee = decimal.Zero
	}
	j.Fee = canonicalFee(j.Fee)
	if !j.Date.IsEmpty() {
		j.Date = DateOf(j.Date.Time)
	}
	return j
}

// assignIDs fills missing or duplicate IDs from the row position so the same
// sheet always yields the same keys until they are written back.
func assignIDs(jobs []Job) []Job {
	seen := make(map[string]bool, len(jobs))
	for i := range jobs {
		id := jobs[i].ID
		if id == "" || seen[id] {
			id = fmt.Sprintf("row-%d", i+1)
			for n := 2; seen[id]; n++ {
				id = fmt.Sprintf("row-%d-%d", i+1, n)
			}
		}
		seen[id] = true
		jobs[i].ID = id
	}
	return jobs
}

// NormalizeUsers turns the raw users table into typed records.
func NormalizeUsers(t sheets.Table) []User {
	users := make([]User, 0, len(t.Rows))
	for _, row := range t.Rows {
		users = append(users, NormalizeUser(User{
			Username: row[ColUsername],
			Password: row[ColPassword],
			Role:     Role(row[ColRole]),
		}))
	}
	return users
}

// NormalizeUser lower-cases and trims the username, trims the password and
// strips the ".0" a spreadsheet appends to numeric-looking passwords.
func NormalizeUser(u User) User {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Password = normalizePassword(u.Password)
	u.Role = ParseRole(string(u.Role))
	return u
}

func normalizePassword(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "$2") {
		return p
	}
	return strings.TrimSuffix(p, ".0")
}

// extraColumns returns the unknown columns carried by jobs, keeping the order
// of hint first and sorting the rest.
func extraColumns(jobs []Job, hint []string) []string {
	known := make(map[string]bool, len(JobColumns))
	for _, c := range JobColumns {
		known[c] = true
	}
	present := map[string]bool{}
	for _, j := range jobs {
		for k := range j.Extra {
			if !known[k] {
				present[k] = true
			}
		}
	}
	var out []string
	for _, c := range hint {
		if present[c] {
			out = append(out, c)
			delete(present, c)
		}
	}
	rest := make([]string, 0, len(present))
	for c := range present {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
