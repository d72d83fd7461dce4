package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"SignalEngine/internal/config"
	"SignalEngine/internal/model"
)

const (
	defaultSheet    = "Sheet1"
	resultsSheet    = "Results"
	singleFileStem  = "Analysis_Report"
	excelDateLayout = "2006-01-02"
)

// Exporter writes wide reports to xlsx files under Dir.
type Exporter struct {
	Dir    string
	Format string // config.ExcelIndividual or config.ExcelSingle
	Now    func() time.Time
}

// NewExporter creates an exporter for the configured output directory and format.
func NewExporter(dir, format string) *Exporter {
	return &Exporter{Dir: dir, Format: format, Now: time.Now}
}

// Export saves the non-empty reports and returns the written paths. Empty reports are
// skipped; nothing is written when every report is empty.
func (e *Exporter) Export(reports []*model.WideReport) ([]string, error) {
	var nonEmpty []*model.WideReport
	for _, r := range reports {
		if r.Empty() {
			if r != nil {
				log.Printf("[INFO] Report %s is empty, skipping export", r.Task)
			}
			continue
		}
		nonEmpty = append(nonEmpty, r)
	}
	if len(nonEmpty) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	date := e.Now().Format(excelDateLayout)
	if e.Format == config.ExcelSingle {
		path := filepath.Join(e.Dir, fmt.Sprintf("%s_%s.xlsx", date, singleFileStem))
		if err := writeWorkbook(path, nonEmpty, func(r *model.WideReport) string { return r.Task }); err != nil {
			return nil, err
		}
		log.Printf("[INFO] Saved %d reports to %s", len(nonEmpty), path)
		return []string{path}, nil
	}

	var paths []string
	for _, r := range nonEmpty {
		path := filepath.Join(e.Dir, fmt.Sprintf("%s_%s.xlsx", date, r.Task))
		if err := writeWorkbook(path, []*model.WideReport{r}, func(*model.WideReport) string { return resultsSheet }); err != nil {
			return paths, err
		}
		log.Printf("[INFO] Wrote %d rows to %s", len(r.Rows), path)
		paths = append(paths, path)
	}
	return paths, nil
}

func writeWorkbook(path string, reports []*model.WideReport, sheetName func(*model.WideReport) string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, r := range reports {
		name := sheetName(r)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, r); err != nil {
			return fmt.Errorf("write sheet %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, r *model.WideReport) error {
	header := Header(r)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}

	for i, cells := range Table(r) {
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		// All Signals Met is stored as a real boolean.
		row[3] = r.Rows[i].AllSignalsMet

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
