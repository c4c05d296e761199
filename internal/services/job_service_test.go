package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lihkab/internal/config"
	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/sheets"
	"lihkab/internal/sheets/memory"
)

const jobsTable = "Sayfa1"

func seedJobs() sheets.Table {
	return sheets.Table{
		Header: []string{core.ColDate, core.ColCustomer, core.ColPlotRef, core.ColStatus, core.ColPayment, core.ColFee, "Not"},
		Rows: []sheets.Row{
			{core.ColDate: "2024-01-05", core.ColCustomer: "Ahmet", core.ColPlotRef: "101/5", core.ColStatus: "Tamamlandı", core.ColPayment: "Ödendi", core.ColFee: "100", "Not": "x"},
			{core.ColDate: "2024-02-10", core.ColCustomer: "Ayşe", core.ColPlotRef: "12/7", core.ColStatus: "Araziye gidildi", core.ColPayment: "Ödendi", core.ColFee: "200"},
			{core.ColDate: "2024-01-01", core.ColCustomer: "Ahmet", core.ColPlotRef: "88/1", core.ColStatus: "Başvuru Alındı", core.ColPayment: "Bekliyor", core.ColFee: "50"},
			{core.ColCustomer: "Kemal", core.ColStatus: "???", core.ColPayment: "Bekliyor", core.ColFee: "75"},
		},
	}
}

func newJobService(t *testing.T, policy string) (*JobService, *memory.Store) {
	t.Helper()
	store := memory.New(map[string]sheets.Table{jobsTable: seedJobs()})
	svc := NewJobService(sheets.NewCached(store, time.Minute, log.Discard()), jobsTable, policy, log.Discard())
	svc.now = func() time.Time { return time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func customers(jobs []core.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Customer
	}
	return out
}

func TestDashboard(t *testing.T) {
	svc, _ := newJobService(t, config.ConflictLastWriterWins)
	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, d.Summary.Count)
	assert.Equal(t, 3, d.Summary.OpenJobs)
	assert.Equal(t, "125", d.Summary.PendingFees.String())
	assert.Equal(t, "300", d.Summary.PaidFees.String())
	require.Len(t, d.Monthly, 2)
	assert.Equal(t, "2024-01", d.Monthly[0].Month)
	assert.Equal(t, []string{"Ayşe", "Ahmet", "Kemal"}, customers(d.LatestOpen))
	assert.Equal(t, []string{"Ahmet", "Kemal"}, customers(d.LatestPending))
}

func TestPeriod(t *testing.T) {
	svc, _ := newJobService(t, config.ConflictLastWriterWins)
	p, years, err := svc.Period(context.Background(), 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)
	assert.Equal(t, 2, p.IncomingJobs)
	assert.Equal(t, 1, p.OpenJobs)
	assert.Equal(t, "50", p.PendingFees.String())
	assert.Equal(t, "100", p.Turnover.String())

	all, _, err := svc.Period(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, all.IncomingJobs)
}

func TestPayments(t *testing.T) {
	svc, _ := newJobService(t, config.ConflictLastWriterWins)
	v, err := svc.Payments(context.Background(), core.Filter{Customer: "Ahmet"})
	require.NoError(t, err)

	assert.Len(t, v.Jobs, 2)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, 10, v.Pending[0].DelayDays)
	assert.Len(t, v.Paid, 1)
	assert.Equal(t, []string{"Ahmet", "Ayşe", "Kemal"}, v.Customers)

	all, err := svc.Payments(context.Background(), core.Filter{})
	require.NoError(t, err)
	require.Len(t, all.Pending, 2)
	assert.False(t, all.Pending[1].HasDelay, "undated job has no delay")
}

func TestAddValidation(t *testing.T) {
	svc, store := newJobService(t, config.ConflictLastWriterWins)

	_, err := svc.Add(context.Background(), JobInput{Payment: core.PaymentPending})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Müşteri adı boş bırakılamaz.", verr.Message("Customer"))

	_, err = svc.Add(context.Background(), JobInput{Customer: "Ali"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Ödeme durumu seçilmelidir.", verr.Message("Payment"))

	_, err = svc.Add(context.Background(), JobInput{Customer: "Ali", Payment: core.PaymentPaid, Fee: decimal.NewFromInt(-5)})
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Message("Fee"))

	assert.Zero(t, store.Writes(), "nothing written on validation failure")
}

func TestAddIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	svc, store := newJobService(t, config.ConflictLastWriterWins)
	before, err := svc.Load(ctx)
	require.NoError(t, err)

	added, err := svc.Add(ctx, JobInput{
		Date:     core.NewDate(2024, 3, 1),
		Customer: " Zeynep ",
		Payment:  core.PaymentPending,
		Fee:      decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	assert.Equal(t, "Zeynep", added.Customer)
	assert.Equal(t, core.StatusReceived, added.Status)
	assert.Equal(t, 1, store.Writes())

	after, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, after.Jobs, len(before.Jobs)+1)
	for i := range before.Jobs {
		assert.Equal(t, before.Jobs[i], after.Jobs[i])
	}
	assert.Equal(t, added.ID, after.Jobs[len(after.Jobs)-1].ID)
}

func TestSaveDeletesAndEdits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newJobService(t, config.ConflictLastWriterWins)

	view, rev, err := svc.Search(ctx, "ahmet")
	require.NoError(t, err)
	require.Len(t, view, 2)

	edited := []core.EditedJob{
		{Job: view[0], Delete: true},
		{Job: view[1]},
	}
	edited[1].Payment = core.PaymentPaid

	res, err := svc.Save(ctx, rev, edited)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 1, res.Deleted)

	after, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ayşe", "Ahmet", "Kemal"}, customers(after.Jobs))
	assert.Equal(t, core.PaymentPaid, after.Jobs[1].Payment)
	assert.Equal(t, res.Revision, after.Revision)
}

func TestSaveUnchangedViewPreservesRecords(t *testing.T) {
	ctx := context.Background()
	svc, store := newJobService(t, config.ConflictLastWriterWins)

	before, err := svc.Load(ctx)
	require.NoError(t, err)
	view := make([]core.EditedJob, len(before.Jobs))
	for i, j := range before.Jobs {
		view[i] = core.EditedJob{Job: j}
	}
	_, err = svc.Save(ctx, before.Revision, view)
	require.NoError(t, err)

	after, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Jobs, after.Jobs)

	raw, err := store.Read(ctx, jobsTable)
	require.NoError(t, err)
	assert.Equal(t, "x", raw.Get(0, "Not"), "unknown columns survive")
	assert.Equal(t, "Başvuru Alındı", raw.Get(3, core.ColStatus), "coerced on write")
}

func TestSaveKeepsStoredExtraColumns(t *testing.T) {
	ctx := context.Background()
	svc, store := newJobService(t, config.ConflictLastWriterWins)

	view, rev, err := svc.Search(ctx, "101/5")
	require.NoError(t, err)
	require.Len(t, view, 1)
	edited := view[0]
	edited.Extra = nil
	edited.Fee = decimal.NewFromInt(120)

	_, err = svc.Save(ctx, rev, []core.EditedJob{{Job: edited}})
	require.NoError(t, err)

	raw, err := store.Read(ctx, jobsTable)
	require.NoError(t, err)
	assert.Equal(t, "x", raw.Get(0, "Not"))
	assert.Equal(t, "120", raw.Get(0, core.ColFee))
}

func TestSaveConflictPolicy(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		policy  string
		wantErr error
	}{
		{config.ConflictLastWriterWins, nil},
		{config.ConflictReject, ErrConflict},
	} {
		t.Run(tt.policy, func(t *testing.T) {
			svc, store := newJobService(t, tt.policy)
			view, rev, err := svc.Search(ctx, "")
			require.NoError(t, err)

			// Someone else edits the sheet directly.
			other := seedJobs()
			other.Rows[0][core.ColCustomer] = "Changed elsewhere"
			require.NoError(t, store.Write(ctx, jobsTable, other))

			edited := []core.EditedJob{{Job: view[0], Delete: true}}
			_, err = svc.Save(ctx, rev, edited)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1, store.Writes(), "rejected save writes nothing")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, store.Writes())
		})
	}
}

func TestLoadMissingTable(t *testing.T) {
	svc := NewJobService(memory.New(nil), jobsTable, config.ConflictLastWriterWins, log.Discard())
	set, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, set.Jobs)

	_, err = svc.Add(context.Background(), JobInput{Customer: "Ilk", Payment: core.PaymentPending})
	require.NoError(t, err)
	set, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, set.Jobs, 1)
}

type failingGateway struct{}

func (failingGateway) Read(context.Context, string) (sheets.Table, error) {
	return sheets.Table{}, errors.New("connection refused")
}

func (failingGateway) Write(context.Context, string, sheets.Table) error {
	return errors.New("connection refused")
}

func TestGatewayErrorsAreWrapped(t *testing.T) {
	svc := NewJobService(failingGateway{}, jobsTable, config.ConflictLastWriterWins, log.Discard())
	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read jobs")
}
