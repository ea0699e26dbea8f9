// AngelaMos | 2026
// export.go

package analytics

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	sheetRetention = "Retention"
	sheetSubjects  = "Subject Progress"
	sheetHeatmap   = "Heatmap"
	sheetTimeSpent = "Time Spent"
	sheetIntervals = "Review Intervals"
)

var weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WriteWorkbook renders a report as an XLSX workbook with one sheet per
// aggregate.
func WriteWorkbook(report *Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetRetention); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetSubjects, sheetHeatmap, sheetTimeSpent, sheetIntervals} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	steps := []func(*excelize.File, *Report) error{
		writeRetention,
		writeSubjects,
		writeHeatmap,
		writeTimeSpent,
		writeIntervals,
	}
	for _, step := range steps {
		if err := step(f, report); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeRetention(f *excelize.File, report *Report) error {
	if err := setRow(f, sheetRetention, 1, []any{"Date", "Retention %"}); err != nil {
		return err
	}
	for i, label := range report.Retention.Labels {
		if err := setRow(f, sheetRetention, i+2, []any{label, report.Retention.Data[i]}); err != nil {
			return err
		}
	}
	return nil
}

func writeSubjects(f *excelize.File, report *Report) error {
	header := []any{"Date"}
	for _, series := range report.SubjectProgress.Datasets {
		header = append(header, series.Label)
	}
	if err := setRow(f, sheetSubjects, 1, header); err != nil {
		return err
	}

	for i, label := range report.SubjectProgress.Labels {
		row := []any{label}
		for _, series := range report.SubjectProgress.Datasets {
			if v := series.Data[i]; v != nil {
				row = append(row, *v)
			} else {
				row = append(row, nil)
			}
		}
		if err := setRow(f, sheetSubjects, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeHeatmap(f *excelize.File, report *Report) error {
	header := make([]any, 0, 25)
	header = append(header, "Day")
	for h := 0; h < 24; h++ {
		header = append(header, strconv.Itoa(h))
	}
	if err := setRow(f, sheetHeatmap, 1, header); err != nil {
		return err
	}

	for day, hours := range report.Heatmap {
		row := make([]any, 0, 25)
		row = append(row, weekdays[day])
		for _, count := range hours {
			row = append(row, count)
		}
		if err := setRow(f, sheetHeatmap, day+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeTimeSpent(f *excelize.File, report *Report) error {
	header := []any{"Session", "Date", "Duration (min)", "Avg per card (s)"}
	if err := setRow(f, sheetTimeSpent, 1, header); err != nil {
		return err
	}
	for i, e := range report.TimeSpent {
		row := []any{e.SessionID, e.Date, e.Duration, e.AverageTimePerCard}
		if err := setRow(f, sheetTimeSpent, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeIntervals(f *excelize.File, report *Report) error {
	if err := setRow(f, sheetIntervals, 1, []any{"Interval (days)", "Correct"}); err != nil {
		return err
	}
	for i, p := range report.ReviewIntervals {
		if err := setRow(f, sheetIntervals, i+2, []any{p.Interval, p.IsCorrect}); err != nil {
			return err
		}
	}
	return nil
}
