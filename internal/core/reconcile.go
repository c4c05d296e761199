package core

import (
	"github.com/google/uuid"

	"lihkab/internal/sheets"
)

// NewJobID returns a fresh stable key for a job created in this process.
func NewJobID() string {
	return uuid.NewString()
}

// Reconcile merges an edited view back into the authoritative jobs and
// returns the next full record set to persist.
//
// Rows flagged for deletion are dropped. The surviving view rows that exist
// in base take the base positions of those same rows, filled in view order,
// so a view that covers every row yields exactly the view minus deletions.
// Base rows outside the view keep their place. View rows unknown to base are
// appended. Neither argument is modified.
func Reconcile(base []Job, view []EditedJob) []Job {
	inBase := make(map[string]bool, len(base))
	for _, b := range base {
		inBase[b.ID] = true
	}
	deleted := map[string]bool{}
	kept := map[string]bool{}
	var fromBase, added []Job
	for _, v := range view {
		if deleted[v.ID] || kept[v.ID] {
			continue
		}
		if v.Delete {
			deleted[v.ID] = true
			continue
		}
		kept[v.ID] = true
		if inBase[v.ID] {
			fromBase = append(fromBase, v.Job)
		} else {
			added = append(added, v.Job)
		}
	}

	out := make([]Job, 0, len(base)+len(added))
	next := 0
	for _, b := range base {
		switch {
		case deleted[b.ID]:
		case kept[b.ID] && next < len(fromBase):
			out = append(out, fromBase[next])
			next++
		default:
			out = append(out, b)
		}
	}
	return append(out, added...)
}

func containsID(jobs []Job, id string) bool {
	for _, j := range jobs {
		if j.ID == id {
			return true
		}
	}
	return false
}

// AppendJob adds j after every existing job, assigning an ID when it has none.
// base is not modified.
func AppendJob(base []Job, j Job) []Job {
	j = NormalizeJob(j)
	if j.ID == "" || containsID(base, j.ID) {
		j.ID = NewJobID()
	}
	out := make([]Job, 0, len(base)+1)
	out = append(out, base...)
	return append(out, j)
}

// JobsToTable serializes jobs into a table ready for a gateway write. Dates
// use DateLayout and empty dates become blank cells. Unknown columns carried
// in Extra follow the known ones, ordered as in header when given.
func JobsToTable(jobs []Job, header []string) sheets.Table {
	extras := extraColumns(jobs, header)
	t := sheets.Table{Header: append(append([]string(nil), JobColumns...), extras...)}
	t.Rows = make([]sheets.Row, 0, len(jobs))
	for _, j := range jobs {
		row := sheets.Row{
			ColID:           j.ID,
			ColDate:         j.Date.String(),
			ColCustomer:     j.Customer,
			ColJobType:      j.JobType,
			ColPlotRef:      j.PlotRef,
			ColDistrict:     j.District,
			ColNeighborhood: j.Neighborhood,
			ColStatus:       string(j.Status),
			ColPayment:      string(j.Payment),
			ColFee:          j.Fee.String(),
		}
		for _, c := range extras {
			row[c] = j.Extra[c]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// AppendUser adds u after the existing users. base is not modified.
func AppendUser(base []User, u User) []User {
	out := make([]User, 0, len(base)+1)
	out = append(out, base...)
	return append(out, NormalizeUser(u))
}

// RemoveUser drops every user whose normalized name equals username.
func RemoveUser(base []User, username string) []User {
	name := NormalizeUser(User{Username: username}).Username
	out := make([]User, 0, len(base))
	for _, u := range base {
		if u.Username == name {
			continue
		}
		out = append(out, u)
	}
	return out
}

// UsersToTable serializes users for a gateway write.
func UsersToTable(users []User) sheets.Table {
	t := sheets.Table{Header: append([]string(nil), UserColumns...)}
	t.Rows = make([]sheets.Row, 0, len(users))
	for _, u := range users {
		t.Rows = append(t.Rows, sheets.Row{
			ColUsername: u.Username,
			ColPassword: u.Password,
			ColRole:     string(u.Role),
		})
	}
	return t
}
