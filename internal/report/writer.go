package report

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"DeclineWatch/internal/model"
)

// Writer writes the HTML report, Excel workbook and chart page of a run
// into one output directory.
type Writer struct {
	Dir       string
	HTMLFile  string
	ExcelFile string
	ChartFile string

	now func() time.Time
}

// NewWriter creates a Writer for dir.
func NewWriter(dir, htmlFile, excelFile, chartFile string) *Writer {
	return &Writer{
		Dir:       dir,
		HTMLFile:  htmlFile,
		ExcelFile: excelFile,
		ChartFile: chartFile,
		now:       time.Now,
	}
}

// Paths lists the files produced by WriteAll.
type Paths struct {
	HTML  string `json:"html"`
	Excel string `json:"excel"`
	Chart string `json:"chart"`
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteAll writes the three report files. Files with an empty name are skipped.
func (w *Writer) WriteAll(result *model.AnalysisResult) (Paths, error) {
	var paths Paths
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return paths, fmt.Errorf("create output dir: %w", err)
	}

	if w.HTMLFile != "" {
		p := filepath.Join(w.Dir, w.HTMLFile)
		if err := writeFile(p, func(out io.Writer) error { return WriteHTML(out, result, w.now()) }); err != nil {
			return paths, err
		}
		paths.HTML = p
	}
	if w.ExcelFile != "" {
		p := filepath.Join(w.Dir, w.ExcelFile)
		if err := writeFile(p, func(out io.Writer) error { return WriteExcel(out, result) }); err != nil {
			return paths, err
		}
		paths.Excel = p
	}
	if w.ChartFile != "" {
		p := filepath.Join(w.Dir, w.ChartFile)
		if err := writeFile(p, func(out io.Writer) error { return WriteCharts(out, result) }); err != nil {
			return paths, err
		}
		paths.Chart = p
	}

	log.Printf("[INFO] reports for run %s written to %s", result.RunID, w.Dir)
	return paths, nil
}
