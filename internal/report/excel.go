package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"DeclineWatch/internal/calculator"
	"DeclineWatch/internal/model"
)

// Sheet names of the workbook.
const (
	SheetAll     = "All"
	SheetSummary = "Summary"
	SheetTop     = "Top"
)

// excelTopN is how many decliners the Top sheet lists.
const excelTopN = 50

var recordHeader = []interface{}{
	"Code", "Name", "Market", "Max Decline (%)", "Peak Date", "Trough Date",
	"Peak Price", "Trough Price", "Period Return (%)", "Current Price",
	"Window High", "Window Low", "Range Position",
}

func recordRow(r model.DeclineRecord) []interface{} {
	return []interface{}{
		r.Stock.Code, r.Stock.Name, string(r.Stock.Market), r.DrawdownPct,
		r.PeakDate.Format("2006-01-02"), r.TroughDate.Format("2006-01-02"),
		r.PeakPrice, r.TroughPrice, r.PeriodReturnPct, r.CurrentPrice,
		r.WindowHigh, r.WindowLow, r.RangePosition,
	}
}

func statCell(v model.StatValue) interface{} {
	if !v.Defined {
		return ""
	}
	return v.Value
}

type workbook struct {
	f      *excelize.File
	header int
}

func (wb *workbook) writeRows(sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := wb.f.SetCellStyle(sheet, "A1", last, wb.header); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	return nil
}

func (wb *workbook) recordSheet(sheet string, records []model.DeclineRecord) error {
	if sheet != SheetAll {
		if _, err := wb.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, recordHeader)
	for _, r := range records {
		rows = append(rows, recordRow(r))
	}
	if err := wb.writeRows(sheet, rows); err != nil {
		return err
	}
	return wb.f.SetColWidth(sheet, "A", "M", 14)
}

func (wb *workbook) summarySheet(result *model.AnalysisResult) error {
	if _, err := wb.f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetSummary, err)
	}
	st := result.Stats
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Run ID", result.RunID},
		{"Market", string(result.Selection)},
		{"Period (trading days)", result.PeriodDays},
		{"Requested", result.Requested},
		{"Analyzed", st.Count},
		{"Excluded", len(result.Excluded)},
		{"Mean (%)", statCell(st.Mean)},
		{"Median (%)", statCell(st.Median)},
		{"Std Dev (%)", statCell(st.StdDev)},
		{"Max Decline (%)", statCell(st.Min)},
		{"Min Decline (%)", statCell(st.Max)},
		{},
		{"Bucket", "Count"},
	}
	for _, label := range st.Labels {
		rows = append(rows, []interface{}{label, st.Histogram[label]})
	}
	if err := wb.writeRows(SheetSummary, rows); err != nil {
		return err
	}
	return wb.f.SetColWidth(SheetSummary, "A", "B", 24)
}

// WriteExcel writes the workbook: every record, the summary, the top
// decliners and one sheet per market that has records.
func WriteExcel(w io.Writer, result *model.AnalysisResult) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	wb := &workbook{f: f, header: header}

	if err := f.SetSheetName("Sheet1", SheetAll); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := wb.recordSheet(SheetAll, result.Records); err != nil {
		return err
	}
	if err := wb.summarySheet(result); err != nil {
		return err
	}
	if err := wb.recordSheet(SheetTop, calculator.RankTop(result.Records, excelTopN)); err != nil {
		return err
	}
	for _, m := range []model.Market{model.MarketKOSPI, model.MarketKOSDAQ} {
		var recs []model.DeclineRecord
		for _, r := range result.Records {
			if r.Stock.Market == m {
				recs = append(recs, r)
			}
		}
		if len(recs) == 0 {
			continue
		}
		if err := wb.recordSheet(string(m), recs); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
