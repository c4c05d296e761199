package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"lihkab/internal/log"
	ports "lihkab/internal/sheets"
)

// fakeSheets serves the subset of the Sheets REST API the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]interface{}
	calls   []string
	written [][]interface{}
	render  string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path[strings.Index(path, "/values/")+len("/values/"):])
	w.Header().Set("Content-Type", "application/json")

	if strings.Contains(path, "Missing") {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range: 'Missing'","status":"INVALID_ARGUMENT"}}`))
		return
	}

	switch {
	case r.Method == http.MethodGet:
		f.render = r.URL.Query().Get("valueRenderOption")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": f.values})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"updatedRows": len(vr.Values)})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", log.Discard())
}

func TestReadConvertsValues(t *testing.T) {
	f := &fakeSheets{values: [][]interface{}{
		{"Tarih", "Müşteri", "Ücret", "Durum"},
		{"05.01.2024", "Ahmet", 1500, "Tamamlandı"},
		{},
		{"", "Ayşe", 1250.5},
	}}
	c := newTestClient(t, f)

	tbl, err := c.Read(context.Background(), "Sayfa1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tarih", "Müşteri", "Ücret", "Durum"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "1500", tbl.Get(0, "Ücret"))
	assert.Equal(t, "1250.5", tbl.Get(1, "Ücret"))
	assert.Equal(t, "", tbl.Get(1, "Durum"))
	assert.Equal(t, []string{"GET 'Sayfa1'"}, f.calls)
	assert.Equal(t, "UNFORMATTED_VALUE", f.render)
}

func TestWriteUpdatesThenClearsRightAndTail(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	tbl := ports.Table{
		Header: []string{"ID", "Müşteri"},
		Rows:   []ports.Row{{"ID": "1", "Müşteri": "Ahmet"}, {"ID": "2"}},
	}
	require.NoError(t, c.Write(context.Background(), "Sayfa1", tbl))

	assert.Equal(t, []string{
		"PUT 'Sayfa1'!A1",
		"POST 'Sayfa1'!C1:ZZ3:clear",
		"POST 'Sayfa1'!A4:ZZ:clear",
	}, f.calls)
	assert.Equal(t, [][]interface{}{{"ID", "Müşteri"}, {"1", "Ahmet"}, {"2", ""}}, f.written)
}

func TestWriteEmptyTableClearsOldHeaderCells(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	require.NoError(t, c.Write(context.Background(), "Users", ports.Table{}))
	assert.Equal(t, []string{
		"PUT 'Users'!A1",
		"POST 'Users'!A1:ZZ1:clear",
		"POST 'Users'!A2:ZZ:clear",
	}, f.calls)
}

func TestColumnName(t *testing.T) {
	cases := map[int]string{1: "A", 3: "C", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ"}
	for n, want := range cases {
		assert.Equal(t, want, columnName(n), n)
	}
}

func TestMissingSheetIsTableNotFound(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	_, err := c.Read(context.Background(), "Missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrTableNotFound))
}

func TestSheetRangeQuotes(t *testing.T) {
	assert.Equal(t, "'Sayfa1'", sheetRange("Sayfa1"))
	assert.Equal(t, "'Ali''s jobs'", sheetRange("Ali's jobs"))
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}
