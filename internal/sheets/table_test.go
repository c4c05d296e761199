package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromValues(t *testing.T) {
	values := [][]interface{}{
		{"Tarih", "Müşteri", "Ücret", ""},
		{"2024-01-05", "Ahmet", float64(1000000)},
		{"", "", ""},
		{nil, " Ayşe ", 1500.5, "ignored"},
	}
	tbl := FromValues(values)

	assert.Equal(t, []string{"Tarih", "Müşteri", "Ücret"}, tbl.Header)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "1000000", tbl.Get(0, "Ücret"))
	assert.Equal(t, "Ayşe", tbl.Get(1, "Müşteri"))
	assert.Equal(t, "1500.5", tbl.Get(1, "Ücret"))
	assert.Equal(t, "", tbl.Get(5, "Tarih"))
	assert.Equal(t, Table{}, FromValues(nil))
}

func TestValuesRoundTrip(t *testing.T) {
	tbl := Table{Header: []string{"a", "b"}, Rows: []Row{{"a": "1"}, {"b": "2"}}}
	assert.Equal(t, [][]interface{}{{"a", "b"}, {"1", ""}, {"", "2"}}, tbl.Values())
	assert.Equal(t, Fingerprint(tbl), Fingerprint(FromValues(tbl.Values())))
}

func TestFingerprint(t *testing.T) {
	a := Table{Header: []string{"a"}, Rows: []Row{{"a": "1"}, {"a": "2"}}}
	b := Table{Header: []string{"a"}, Rows: []Row{{"a": "2"}, {"a": "1"}}}
	assert.Len(t, Fingerprint(a), 16)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, Fingerprint(a), Fingerprint(a.Clone()))
}
