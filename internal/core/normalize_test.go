package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lihkab/internal/sheets"
)

func rawJobs() sheets.Table {
	return sheets.Table{
		Header: []string{ColDate, ColCustomer, ColJobType, ColPlotRef, ColDistrict, ColNeighborhood, ColStatus, ColPayment, ColFee, "Not"},
		Rows: []sheets.Row{
			{ColDate: "2024-01-05", ColCustomer: "  Ahmet Yılmaz ", ColJobType: "Aplikasyon", ColPlotRef: "101/5", ColStatus: "Tamamlandı", ColPayment: "Ödendi", ColFee: "1500.0", "Not": "acil"},
			{ColDate: "05.02.2024", ColCustomer: "Ayşe", ColStatus: "bilinmiyor", ColPayment: "Bekliyor", ColFee: "1.250,50"},
			{ColDate: "NaT", ColCustomer: "Mehmet", ColFee: "abc"},
			{ColCustomer: "Zeynep", ColStatus: "  Araziye gidildi ", ColPayment: "belki", ColFee: "-20"},
		},
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-05", NewDate(2024, 1, 5), true},
		{"2024-01-05 00:00:00", NewDate(2024, 1, 5), true},
		{"2024-01-05T10:30:00Z", NewDate(2024, 1, 5), true},
		{"05.01.2024", NewDate(2024, 1, 5), true},
		{"5.1.2024", NewDate(2024, 1, 5), true},
		{"2024/01/05", NewDate(2024, 1, 5), true},
		{"45296", NewDate(2024, 1, 5), true},
		{"45296.75", NewDate(2024, 1, 5), true},
		{"2024", Date{}, false},
		{"9999", Date{}, false},
		{"", Date{}, false},
		{"NaT", Date{}, false},
		{"None", Date{}, false},
		{"2024-13-40", Date{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseDate(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.True(t, tc.want.Equal(got.Time), "got %v want %v", got, tc.want)
		})
	}
}

func TestParseFee(t *testing.T) {
	cases := map[string]string{
		"1500":      "1500",
		"1500.0":    "1500",
		"1.500":     "1500",
		"1.500 TL":  "1500",
		"12.000":    "12000",
		"1.5":       "1.5",
		"1.50":      "1.5",
		"1.5000":    "1.5",
		"1.500,50":  "1500.5",
		"1,500":     "1500",
		"1,500.50":  "1500.5",
		"750,5 TL":  "750.5",
		"₺2000":     "2000",
		"1.000.000": "1000000",
		"1,000,000": "1000000",
		"":          "0",
		"abc":       "0",
		"-20":       "0",
		"1 250":     "1250",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseFee(in).String())
		})
	}
}

func TestNormalizeJobs(t *testing.T) {
	jobs := NormalizeJobs(rawJobs())
	require.Len(t, jobs, 4)

	assert.Equal(t, "Ahmet Yılmaz", jobs[0].Customer)
	assert.Equal(t, StatusCompleted, jobs[0].Status)
	assert.Equal(t, PaymentPaid, jobs[0].Payment)
	assert.True(t, jobs[0].Fee.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, map[string]string{"Not": "acil"}, jobs[0].Extra)

	assert.Equal(t, NewDate(2024, 2, 5), jobs[1].Date)
	assert.Equal(t, StatusReceived, jobs[1].Status, "unknown status falls back to Received")
	assert.Equal(t, "1250.5", jobs[1].Fee.String())

	assert.True(t, jobs[2].Date.IsEmpty(), "unparsable date is empty, not an error")
	assert.True(t, jobs[2].Fee.IsZero())

	assert.Equal(t, StatusSiteVisit, jobs[3].Status)
	assert.Equal(t, PaymentUnset, jobs[3].Payment)
	assert.True(t, jobs[3].Fee.IsZero())

	ids := map[string]bool{}
	for _, j := range jobs {
		assert.NotEmpty(t, j.ID)
		assert.False(t, ids[j.ID], "duplicate id %s", j.ID)
		ids[j.ID] = true
	}
}

func TestNormalizeJobs_MissingColumns(t *testing.T) {
	jobs := NormalizeJobs(sheets.Table{
		Header: []string{ColCustomer},
		Rows:   []sheets.Row{{ColCustomer: "Ali"}},
	})
	require.Len(t, jobs, 1)
	assert.Equal(t, "", jobs[0].PlotRef)
	assert.Equal(t, StatusReceived, jobs[0].Status)
	assert.Equal(t, PaymentUnset, jobs[0].Payment)
	assert.True(t, jobs[0].Date.IsEmpty())
	assert.Nil(t, jobs[0].Extra)
}

func TestNormalizeJobs_StableIDs(t *testing.T) {
	tbl := sheets.Table{
		Header: []string{ColID, ColCustomer},
		Rows: []sheets.Row{
			{ColID: "a", ColCustomer: "1"},
			{ColID: "", ColCustomer: "2"},
			{ColID: "a", ColCustomer: "3"},
			{ColID: "row-4", ColCustomer: "4"},
			{ColID: "", ColCustomer: "5"},
		},
	}
	first := NormalizeJobs(tbl)
	second := NormalizeJobs(tbl)
	assert.Equal(t, first, second, "same sheet yields same keys")
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "row-2", first[1].ID)
	assert.Equal(t, "row-3", first[2].ID)
	assert.Equal(t, "row-4", first[3].ID)
	assert.Equal(t, "row-5", first[4].ID)

	clash := NormalizeJobs(sheets.Table{
		Header: []string{ColID},
		Rows:   []sheets.Row{{ColID: "row-2"}, {ColID: ""}},
	})
	assert.Equal(t, "row-2-2", clash[1].ID)
}

func TestNormalizeJobs_Idempotent(t *testing.T) {
	once := NormalizeJobs(rawJobs())
	twice := NormalizeJobs(JobsToTable(once, rawJobs().Header))
	assert.Equal(t, once, twice)

	for _, j := range once {
		assert.Equal(t, j, NormalizeJob(j))
	}
}

func TestStatusCoercionIsTotal(t *testing.T) {
	inputs := []string{"", " ", "tamamlandı", "TAMAMLANDI", "Done", "42", "Başvuru Alındı", "\x00", "Evraklar hazırlanıyor  "}
	for _, in := range inputs {
		jobs := NormalizeJobs(sheets.Table{
			Header: []string{ColStatus},
			Rows:   []sheets.Row{{ColStatus: in}},
		})
		require.Len(t, jobs, 1)
		assert.True(t, jobs[0].Status.Valid(), "input %q gave %q", in, jobs[0].Status)
	}
}

func TestParseStatusMatchesExactly(t *testing.T) {
	assert.Equal(t, StatusCompleted, ParseStatus("Tamamlandı"))
	assert.Equal(t, StatusSiteVisit, ParseStatus("  Araziye gidildi "))
	assert.Equal(t, StatusReceived, ParseStatus("tamamlandı"))
	assert.Equal(t, StatusReceived, ParseStatus("TAMAMLANDI"))

	assert.Equal(t, PaymentPaid, ParsePayment(" Ödendi"))
	assert.Equal(t, PaymentUnset, ParsePayment("bekliyor"))
}

func TestNormalizeUsers(t *testing.T) {
	users := NormalizeUsers(sheets.Table{
		Header: []string{ColUsername, ColPassword, ColRole},
		Rows: []sheets.Row{
			{ColUsername: "  Admin ", ColPassword: "1234.0", ColRole: "ADMIN"},
			{ColUsername: "veli", ColPassword: " gizli ", ColRole: "root"},
		},
	})
	require.Len(t, users, 2)
	assert.Equal(t, User{Username: "admin", Password: "1234", Role: RoleAdmin}, users[0])
	assert.Equal(t, User{Username: "veli", Password: "gizli", Role: RoleUser}, users[1])
}
