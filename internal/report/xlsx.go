package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"lihkab/internal/core"
)

// JobsSheetName is the worksheet written by JobsXLSX.
const JobsSheetName = "Ödeme Raporu"

// XLSXColumns is the column order of the jobs workbook.
var XLSXColumns = []string{
	core.ColDate, core.ColCustomer, core.ColJobType, core.ColPlotRef,
	core.ColDistrict, core.ColNeighborhood, core.ColStatus, core.ColPayment, core.ColFee,
}

// JobsXLSX writes jobs as a single-sheet workbook to w. Dates and fees are
// stored as typed cells with display formats.
func JobsXLSX(w io.Writer, jobs []core.Job) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", JobsSheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	styles, err := newXLSXStyles(f)
	if err != nil {
		return err
	}

	for i, col := range XLSXColumns {
		if err := setCell(f, i+1, 1, col, styles.header); err != nil {
			return err
		}
	}
	for r, j := range jobs {
		row := r + 2
		for i, col := range XLSXColumns {
			var err error
			switch col {
			case core.ColDate:
				if j.Date.IsEmpty() {
					err = setCell(f, i+1, row, "", 0)
				} else {
					err = setCell(f, i+1, row, j.Date.Time, styles.date)
				}
			case core.ColFee:
				fee, _ := j.Fee.Float64()
				err = setCell(f, i+1, row, fee, styles.money)
			default:
				err = setCell(f, i+1, row, jobField(j, col), 0)
			}
			if err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(JobsSheetName, "A", "I", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type xlsxStyles struct {
	header, money, date int
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6EEF8"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	money := `#,##0 "TL"`
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &money}); err != nil {
		return s, fmt.Errorf("money style: %w", err)
	}
	date := "dd.mm.yyyy"
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &date}); err != nil {
		return s, fmt.Errorf("date style: %w", err)
	}
	return s, nil
}

func setCell(f *excelize.File, col, row int, v any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(JobsSheetName, cell, v); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	if style == 0 {
		return nil
	}
	if err := f.SetCellStyle(JobsSheetName, cell, cell, style); err != nil {
		return fmt.Errorf("style %s: %w", cell, err)
	}
	return nil
}

func jobField(j core.Job, col string) string {
	switch col {
	case core.ColCustomer:
		return j.Customer
	case core.ColJobType:
		return j.JobType
	case core.ColPlotRef:
		return j.PlotRef
	case core.ColDistrict:
		return j.District
	case core.ColNeighborhood:
		return j.Neighborhood
	case core.ColStatus:
		return string(j.Status)
	case core.ColPayment:
		return string(j.Payment)
	}
	return ""
}
