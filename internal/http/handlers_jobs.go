package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/services"
)

// jobsView is the jobs panel: period figures, the add form and the editable
// search result.
type jobsView struct {
	Period        services.PeriodStats
	PeriodLabel   string
	Years         []int
	MonthNames    []string
	Query         string
	Jobs          []core.Job
	Revision      string
	Form          services.JobInput
	Today         core.Date
	Statuses      []core.Status
	Payments      []core.PaymentStatus
	JobTypes      []string
	Districts     []string
	Neighborhoods map[string][]string
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	today := core.DateOf(s.now())
	view, err := s.loadJobsView(r, r.URL.Query(), services.JobInput{Date: today})
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "jobs.html", newPage(r, "İş Takip", "jobs", view))
}

func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Geçersiz istek.", http.StatusBadRequest)
		return
	}
	in := ParseJobInput(r.PostForm, core.DateOf(s.now()))

	ctx, cancel := s.gatewayContext(r)
	defer cancel()
	if _, err := s.jobs.Add(ctx, in); err != nil {
		f := classify(err)
		if f.Status != http.StatusUnprocessableEntity {
			s.fail(w, r, log.OpCreate, err)
			return
		}
		s.logFailure(r, log.OpCreate, err, f)
		s.rerenderJobs(w, r, f, in)
		return
	}
	redirect(w, r, "/jobs?ok=job_added")
}

func (s *Server) handleSaveJobs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Geçersiz istek.", http.StatusBadRequest)
		return
	}
	revision, view := ParseEditedView(r.PostForm)

	ctx, cancel := s.gatewayContext(r)
	defer cancel()
	res, err := s.jobs.Save(ctx, revision, view)
	if err != nil {
		f := classify(err)
		if f.Status != http.StatusConflict {
			s.fail(w, r, log.OpSave, err)
			return
		}
		s.logFailure(r, log.OpSave, err, f)
		s.rerenderJobs(w, r, f, services.JobInput{Date: core.DateOf(s.now())})
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Edited view saved",
		log.FieldRows, res.Rows, "deleted", res.Deleted, log.FieldRevision, res.Revision)

	target := "/jobs?ok=jobs_saved"
	if q := strings.TrimSpace(r.PostForm.Get("q")); q != "" {
		target += "&q=" + url.QueryEscape(q)
	}
	redirect(w, r, target)
}

// rerenderJobs shows the jobs panel again with the failure and the
// submitted form values.
func (s *Server) rerenderJobs(w http.ResponseWriter, r *http.Request, f failure, in services.JobInput) {
	view, err := s.loadJobsView(r, r.URL.Query(), in)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	p := newPage(r, "İş Takip", "jobs", view)
	p.Error = f.Message
	p.Fields = f.Fields
	s.render(w, r, f.Status, "jobs.html", p)
}

func (s *Server) loadJobsView(r *http.Request, q url.Values, form services.JobInput) (jobsView, error) {
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	year, month := parseYear(q.Get("year")), parseMonth(q.Get("month"))
	period, years, err := s.jobs.Period(ctx, year, month)
	if err != nil {
		return jobsView{}, err
	}
	query := sanitizeInput(q.Get("q"))
	jobs, revision, err := s.jobs.Search(ctx, query)
	if err != nil {
		return jobsView{}, err
	}
	return jobsView{
		Period:        period,
		PeriodLabel:   periodLabel(year, month),
		Years:         years,
		MonthNames:    core.MonthNames,
		Query:         query,
		Jobs:          jobs,
		Revision:      revision,
		Form:          form,
		Today:         core.DateOf(s.now()),
		Statuses:      core.Statuses,
		Payments:      core.PaymentStatuses,
		JobTypes:      core.JobTypes,
		Districts:     core.Districts(),
		Neighborhoods: core.Neighborhoods,
	}, nil
}

// periodLabel names the KPI period, e.g. "Mart 2024", "2024" or "Tümü".
func periodLabel(year, month int) string {
	var parts []string
	if month != 0 {
		parts = append(parts, monthName(month))
	}
	if year != 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	if len(parts) == 0 {
		return "Tümü"
	}
	return strings.Join(parts, " ")
}
