package sheets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Row is one loosely typed record keyed by column header. Absent cells are
// simply missing from the map.
type Row map[string]string

// Table is a header plus rows, the unit read and written by a Gateway.
type Table struct {
	Header []string
	Rows   []Row
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Get returns the cell at row i and column col, or "" when absent.
func (t Table) Get(i int, col string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][col]
}

// Clone returns a deep copy so cached snapshots cannot be mutated by callers.
func (t Table) Clone() Table {
	out := Table{Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([]Row, len(t.Rows))
	}
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// FromValues converts a values matrix (as returned by the Sheets API) into a
// Table. The first row is the header; blank header cells and fully empty rows
// are skipped.
func FromValues(values [][]interface{}) Table {
	if len(values) == 0 {
		return Table{}
	}
	header := toStrings(values[0])
	// Trailing empty header cells are common when a column was cleared.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	t := Table{Header: header}
	for _, raw := range values[1:] {
		cells := toStrings(raw)
		row := make(Row, len(header))
		empty := true
		for i, col := range header {
			if col == "" || i >= len(cells) {
				continue
			}
			if cells[i] != "" {
				empty = false
			}
			row[col] = cells[i]
		}
		if empty {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Values converts the table back into a values matrix with the header first.
func (t Table) Values() [][]interface{} {
	out := make([][]interface{}, 0, len(t.Rows)+1)
	head := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		head[i] = h
	}
	out = append(out, head)
	for _, r := range t.Rows {
		line := make([]interface{}, len(t.Header))
		for i, h := range t.Header {
			line[i] = r[h]
		}
		out = append(out, line)
	}
	return out
}

// Fingerprint returns a stable revision string for the table contents.
// Two tables with equal header and cells in the same order share a fingerprint.
func Fingerprint(t Table) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x1f", len(t.Header))
	for _, c := range t.Header {
		h.Write([]byte(c))
		h.Write([]byte{0x1f})
	}
	for _, r := range t.Rows {
		h.Write([]byte{0x1e})
		for _, c := range t.Header {
			h.Write([]byte(r[c]))
			h.Write([]byte{0x1f})
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
		case float64:
			// Unformatted numeric cells; avoid 1e+06 style output.
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}
