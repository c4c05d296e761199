package http

import (
	"net/url"
	"strings"

	"lihkab/internal/core"
	"lihkab/internal/services"
)

// Form field names shared by templates and parsers.
const (
	fieldRevision     = "revision"
	fieldID           = "id"
	fieldDate         = "date"
	fieldCustomer     = "customer"
	fieldJobType      = "job_type"
	fieldPlotRef      = "plot_ref"
	fieldDistrict     = "district"
	fieldNeighborhood = "neighborhood"
	fieldStatus       = "status"
	fieldPayment      = "payment"
	fieldFee          = "fee"
	fieldDelete       = "delete"
)

// ParseFilter reads year, month and customer from query values. Month may
// be a number or a Turkish month name.
func ParseFilter(q url.Values) core.Filter {
	return core.Filter{
		Year:     parseYear(q.Get("year")),
		Month:    parseMonth(q.Get("month")),
		Customer: sanitizeInput(q.Get("customer")),
	}
}

// ParseJobInput reads the add-job form. Dates and fees are coerced the same
// way stored cells are; a blank date means today.
func ParseJobInput(form url.Values, today core.Date) services.JobInput {
	date, ok := core.ParseDate(form.Get(fieldDate))
	if !ok {
		date = today
	}
	return services.JobInput{
		Date:         date,
		Customer:     sanitizeInput(form.Get(fieldCustomer)),
		JobType:      sanitizeInput(form.Get(fieldJobType)),
		PlotRef:      sanitizeInput(form.Get(fieldPlotRef)),
		District:     sanitizeInput(form.Get(fieldDistrict)),
		Neighborhood: sanitizeInput(form.Get(fieldNeighborhood)),
		Status:       core.Status(sanitizeInput(form.Get(fieldStatus))),
		Payment:      core.PaymentStatus(sanitizeInput(form.Get(fieldPayment))),
		Fee:          core.ParseFee(form.Get(fieldFee)),
	}
}

// ParseEditedView reads the editable jobs table. Row fields are parallel
// lists indexed by position; the delete checkboxes carry row IDs. Rows
// without an ID are skipped.
func ParseEditedView(form url.Values) (revision string, view []core.EditedJob) {
	revision = strings.TrimSpace(form.Get(fieldRevision))
	deleted := make(map[string]bool)
	for _, id := range form[fieldDelete] {
		deleted[strings.TrimSpace(id)] = true
	}

	ids := form[fieldID]
	at := func(field string, i int) string {
		vals := form[field]
		if i < len(vals) {
			return sanitizeInput(vals[i])
		}
		return ""
	}
	for i, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		date, _ := core.ParseDate(at(fieldDate, i))
		view = append(view, core.EditedJob{
			Job: core.Job{
				ID:           id,
				Date:         date,
				Customer:     at(fieldCustomer, i),
				JobType:      at(fieldJobType, i),
				PlotRef:      at(fieldPlotRef, i),
				District:     at(fieldDistrict, i),
				Neighborhood: at(fieldNeighborhood, i),
				Status:       core.Status(at(fieldStatus, i)),
				Payment:      core.PaymentStatus(at(fieldPayment, i)),
				Fee:          core.ParseFee(at(fieldFee, i)),
			},
			Delete: deleted[id],
		})
	}
	return revision, view
}

// ParseUserInput reads the add-user form.
func ParseUserInput(form url.Values) services.UserInput {
	return services.UserInput{
		Username: sanitizeInput(form.Get("username")),
		Password: form.Get("password"),
		Role:     core.Role(sanitizeInput(form.Get("role"))),
	}
}
