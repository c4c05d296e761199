package core

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the headline metrics of a view. Amounts are raw decimals;
// formatting is left to the presentation layer.
type Summary struct {
	Count       int
	OpenJobs    int // status is not Completed
	PendingFees decimal.Decimal
	PaidFees    decimal.Decimal
}

// MonthTotal is the paid amount of one calendar month.
type MonthTotal struct {
	Month string // YYYY-MM
	Total decimal.Decimal
}

// PendingJob is a job awaiting payment with its delay in whole days.
// HasDelay is false when the job has no usable date.
type PendingJob struct {
	Job
	DelayDays int
	HasDelay  bool
}

// Summarize computes the dashboard metrics over jobs.
func Summarize(jobs []Job) Summary {
	s := Summary{Count: len(jobs), PendingFees: decimal.Zero, PaidFees: decimal.Zero}
	for _, j := range jobs {
		if j.Open() {
			s.OpenJobs++
		}
		switch j.Payment {
		case PaymentPending:
			s.PendingFees = s.PendingFees.Add(j.Fee)
		case PaymentPaid:
			s.PaidFees = s.PaidFees.Add(j.Fee)
		}
	}
	return s
}

// SumFees adds up the fees of jobs.
func SumFees(jobs []Job) decimal.Decimal {
	total := decimal.Zero
	for _, j := range jobs {
		total = total.Add(j.Fee)
	}
	return total
}

// MonthlyPaid groups paid jobs by month of their date and sums the fees,
// ordered chronologically. Paid jobs without a date are left out.
func MonthlyPaid(jobs []Job) []MonthTotal {
	sums := map[string]decimal.Decimal{}
	for _, j := range jobs {
		if j.Payment != PaymentPaid || j.Date.IsEmpty() {
			continue
		}
		key := j.Date.MonthKey()
		if cur, ok := sums[key]; ok {
			sums[key] = cur.Add(j.Fee)
		} else {
			sums[key] = j.Fee
		}
	}
	out := make([]MonthTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, MonthTotal{Month: k, Total: v})
	}
	// YYYY-MM sorts chronologically as a string.
	sort.Slice(out, func(a, b int) bool { return out[a].Month < out[b].Month })
	return out
}

// PendingWithDelay returns the jobs awaiting payment with the number of
// calendar days elapsed since their date. Today is taken in now's location.
func PendingWithDelay(jobs []Job, now time.Time) []PendingJob {
	today := DateOf(now)
	var out []PendingJob
	for _, j := range jobs {
		if j.Payment != PaymentPending {
			continue
		}
		p := PendingJob{Job: j}
		if !j.Date.IsEmpty() {
			p.DelayDays = int(math.Round(today.Sub(j.Date.Time).Hours() / 24))
			p.HasDelay = true
		}
		out = append(out, p)
	}
	return out
}

// Latest returns up to n jobs ordered newest first. Undated jobs sort last
// and keep their relative order. n <= 0 means no limit.
func Latest(jobs []Job, n int) []Job {
	out := append([]Job(nil), jobs...)
	sort.SliceStable(out, func(a, b int) bool {
		da, db := out[a].Date, out[b].Date
		if da.IsEmpty() || db.IsEmpty() {
			return !da.IsEmpty() && db.IsEmpty()
		}
		return da.After(db.Time)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
