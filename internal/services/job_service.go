package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"lihkab/internal/config"
	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/sheets"
)

// freshReader is implemented by gateways that can bypass their read cache.
type freshReader interface {
	ReadFresh(ctx context.Context, table string) (sheets.Table, error)
}

// JobSet is the normalized jobs table as read, with the revision it had.
type JobSet struct {
	Jobs     []core.Job
	Header   []string
	Revision string
}

// Dashboard holds the headline numbers of the whole jobs table.
type Dashboard struct {
	Summary       core.Summary
	Monthly       []core.MonthTotal
	LatestOpen    []core.Job
	LatestPending []core.Job
}

// PeriodStats are the jobs panel figures for an optional year and month.
type PeriodStats struct {
	Year, Month  int
	OpenJobs     int
	IncomingJobs int
	PendingFees  decimal.Decimal
	Turnover     decimal.Decimal
}

// PaymentsView is the payments panel for one filter.
type PaymentsView struct {
	Filter    core.Filter
	Jobs      []core.Job
	Summary   core.Summary
	Monthly   []core.MonthTotal
	Pending   []core.PendingJob
	Paid      []core.Job
	Years     []int
	Customers []string
}

// JobInput is a new job as submitted by the add form.
type JobInput struct {
	Date         core.Date
	Customer     string             `validate:"required,max=200"`
	JobType      string             `validate:"max=100"`
	PlotRef      string             `validate:"max=100"`
	District     string             `validate:"max=100"`
	Neighborhood string             `validate:"max=100"`
	Status       core.Status        `validate:"job_status"`
	Payment      core.PaymentStatus `validate:"required,payment"`
	Fee          decimal.Decimal    `validate:"gte=0"`
}

// SaveResult summarizes a reconciled save.
type SaveResult struct {
	Rows     int
	Deleted  int
	Revision string
}

// JobService reads, filters and writes the jobs table.
type JobService struct {
	gw       sheets.Gateway
	table    string
	policy   string
	validate *validator.Validate
	logger   *log.Logger
	now      func() time.Time
}

// NewJobService creates a service over the jobs table of gw. policy is one
// of the config.Conflict* values; anything else means last writer wins.
func NewJobService(gw sheets.Gateway, table, policy string, logger *log.Logger) *JobService {
	if logger == nil {
		logger = log.Default()
	}
	return &JobService{
		gw:       gw,
		table:    table,
		policy:   policy,
		validate: newValidator(),
		logger:   logger.WithComponent(log.ComponentJobs),
		now:      time.Now,
	}
}

// Load reads and normalizes the jobs table. A missing table is empty.
func (s *JobService) Load(ctx context.Context) (JobSet, error) {
	t, err := s.gw.Read(ctx, s.table)
	return s.toSet(ctx, t, err)
}

func (s *JobService) loadFresh(ctx context.Context) (JobSet, error) {
	if fr, ok := s.gw.(freshReader); ok {
		t, err := fr.ReadFresh(ctx, s.table)
		return s.toSet(ctx, t, err)
	}
	return s.Load(ctx)
}

func (s *JobService) toSet(ctx context.Context, t sheets.Table, err error) (JobSet, error) {
	if errors.Is(err, sheets.ErrTableNotFound) {
		s.logger.WarnContext(ctx, "Jobs table not found, treating as empty", log.FieldTable, s.table)
		return JobSet{Header: core.JobColumns, Revision: sheets.Fingerprint(sheets.Table{})}, nil
	}
	if err != nil {
		return JobSet{}, fmt.Errorf("read jobs: %w", err)
	}
	return JobSet{Jobs: core.NormalizeJobs(t), Header: t.Header, Revision: sheets.Fingerprint(t)}, nil
}

// Dashboard computes the overview of every job.
func (s *JobService) Dashboard(ctx context.Context) (Dashboard, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Summary:       core.Summarize(set.Jobs),
		Monthly:       core.MonthlyPaid(set.Jobs),
		LatestOpen:    core.Latest(core.FilterJobs(set.Jobs, core.Filter{ExcludeStatus: core.StatusCompleted}), 10),
		LatestPending: core.Latest(core.FilterJobs(set.Jobs, core.Filter{Payment: core.PaymentPending}), 10),
	}, nil
}

// MonthlyIncome returns paid totals per month for jobs matching f.
func (s *JobService) MonthlyIncome(ctx context.Context, f core.Filter) ([]core.MonthTotal, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return core.MonthlyPaid(core.FilterJobs(set.Jobs, f)), nil
}

// Period computes the jobs panel figures. Zero year or month means all.
func (s *JobService) Period(ctx context.Context, year, month int) (PeriodStats, []int, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return PeriodStats{}, nil, err
	}
	return periodStats(set.Jobs, year, month), core.Years(set.Jobs), nil
}

func periodStats(jobs []core.Job, year, month int) PeriodStats {
	in := core.FilterJobs(jobs, core.Filter{Year: year, Month: month})
	sum := core.Summarize(in)
	return PeriodStats{
		Year:         year,
		Month:        month,
		OpenJobs:     sum.OpenJobs,
		IncomingJobs: sum.Count,
		PendingFees:  sum.PendingFees,
		Turnover:     sum.PaidFees,
	}
}

// Search returns the jobs matching a free-text query together with the
// revision the edited view will be saved against.
func (s *JobService) Search(ctx context.Context, query string) ([]core.Job, string, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	return core.FilterJobs(set.Jobs, core.Filter{Search: query}), set.Revision, nil
}

// Payments builds the payments panel for f.
func (s *JobService) Payments(ctx context.Context, f core.Filter) (PaymentsView, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return PaymentsView{}, err
	}
	jobs := core.FilterJobs(set.Jobs, f)
	return PaymentsView{
		Filter:    f,
		Jobs:      jobs,
		Summary:   core.Summarize(jobs),
		Monthly:   core.MonthlyPaid(jobs),
		Pending:   core.PendingWithDelay(jobs, s.now()),
		Paid:      core.FilterJobs(jobs, core.Filter{Payment: core.PaymentPaid}),
		Years:     core.Years(set.Jobs),
		Customers: core.Customers(set.Jobs),
	}, nil
}

// Add validates in and appends it as a new job. Existing rows keep their
// order.
func (s *JobService) Add(ctx context.Context, in JobInput) (core.Job, error) {
	if in.Status == "" {
		in.Status = core.StatusReceived
	}
	if err := check(s.validate, in); err != nil {
		return core.Job{}, err
	}

	set, err := s.loadFresh(ctx)
	if err != nil {
		return core.Job{}, err
	}
	next := core.AppendJob(set.Jobs, core.Job{
		ID:           core.NewJobID(),
		Date:         in.Date,
		Customer:     in.Customer,
		JobType:      in.JobType,
		PlotRef:      in.PlotRef,
		District:     in.District,
		Neighborhood: in.Neighborhood,
		Status:       in.Status,
		Payment:      in.Payment,
		Fee:          in.Fee,
	})
	added := next[len(next)-1]
	if err := s.write(ctx, next, set.Header); err != nil {
		return core.Job{}, err
	}

	s.logger.InfoContext(ctx, "Job added",
		log.NewFields().WithJob(added.ID, added.Customer).WithOperation(log.OpCreate).ToSlice()...)
	return added, nil
}

// Save reconciles an edited view into the stored jobs and writes the result.
// baseRevision is the revision the view was loaded from; under the reject
// policy a save against an outdated revision fails with ErrConflict.
func (s *JobService) Save(ctx context.Context, baseRevision string, view []core.EditedJob) (SaveResult, error) {
	set, err := s.loadFresh(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	if s.policy == config.ConflictReject && baseRevision != "" && baseRevision != set.Revision {
		s.logger.WarnContext(ctx, "Rejected save against stale revision",
			log.FieldRevision, baseRevision, "current_revision", set.Revision)
		return SaveResult{}, ErrConflict
	}

	extras := make(map[string]map[string]string, len(set.Jobs))
	for _, j := range set.Jobs {
		if j.Extra != nil {
			extras[j.ID] = j.Extra
		}
	}
	view = append([]core.EditedJob(nil), view...)
	for i := range view {
		// Forms do not round-trip unknown columns; keep the stored ones.
		if view[i].Extra == nil {
			view[i].Extra = extras[view[i].ID]
		}
		view[i].Job = core.NormalizeJob(view[i].Job)
	}
	merged := core.Reconcile(set.Jobs, view)
	table := core.JobsToTable(merged, set.Header)
	if err := s.gw.Write(ctx, s.table, table); err != nil {
		return SaveResult{}, fmt.Errorf("write jobs: %w", err)
	}

	res := SaveResult{Rows: len(merged), Deleted: removed(set.Jobs, merged), Revision: sheets.Fingerprint(table)}
	s.logger.InfoContext(ctx, "Jobs saved",
		log.FieldRows, res.Rows, "deleted", res.Deleted, log.FieldOperation, log.OpSave)
	return res, nil
}

// removed counts the rows of before that are absent from after.
func removed(before, after []core.Job) int {
	kept := make(map[string]bool, len(after))
	for _, j := range after {
		kept[j.ID] = true
	}
	n := 0
	for _, j := range before {
		if !kept[j.ID] {
			n++
		}
	}
	return n
}

func (s *JobService) write(ctx context.Context, jobs []core.Job, header []string) error {
	if err := s.gw.Write(ctx, s.table, core.JobsToTable(jobs, header)); err != nil {
		return fmt.Errorf("write jobs: %w", err)
	}
	return nil
}
