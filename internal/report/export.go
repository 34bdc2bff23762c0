package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/deepak-highbeam/calsift/internal/csvparse"
	"github.com/deepak-highbeam/calsift/internal/heatmap"
	"github.com/deepak-highbeam/calsift/internal/stats"
)

// Sheet names of the XLSX export, in workbook order.
const (
	SheetCategories = "Categories"
	SheetHeatmap    = "Heatmap"
	SheetEvents     = "Events"
)

// WriteCSV writes the event export with its header row.
func WriteCSV(w io.Writer, rows []stats.ExportRow) error {
	cw := csvparse.NewWriter(w)
	if err := cw.Write(stats.ExportHeader...); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Fields()...); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return cw.Flush()
}

// WriteXLSX writes a workbook with the category table, the heatmap grid
// (cells hold the legend number, index+1, on the category color) and the
// event export.
func WriteXLSX(w io.Writer, s stats.Summary, h *heatmap.Heatmap, rows []stats.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCategories); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetHeatmap, SheetEvents} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	x := &xlsxWriter{f: f, bold: bold}
	x.categories(s)
	x.heatmap(h)
	x.events(rows)
	if x.err != nil {
		return x.err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// xlsxWriter keeps the first error so sheet builders can run unchecked.
type xlsxWriter struct {
	f    *excelize.File
	bold int
	err  error

	fills map[int]int
}

func (x *xlsxWriter) row(sheet string, rowNum int, values []any) {
	if x.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		x.err = err
		return
	}
	if err := x.f.SetSheetRow(sheet, cell, &values); err != nil {
		x.err = fmt.Errorf("write %s row %d: %w", sheet, rowNum, err)
	}
}

func (x *xlsxWriter) header(sheet string, names []string) {
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	x.row(sheet, 1, values)
	if x.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(names), 1)
	if err != nil {
		x.err = err
		return
	}
	if err := x.f.SetCellStyle(sheet, "A1", last, x.bold); err != nil {
		x.err = err
	}
}

func (x *xlsxWriter) categories(s stats.Summary) {
	x.header(SheetCategories, []string{"Category", "Hours", "Per Day", "Percentage", "Events"})
	for i, c := range s.Categories {
		x.row(SheetCategories, i+2, []any{c.Name, round1(c.Hours()), round1(c.PerDay), round1(c.Percentage), c.Count})
	}
	if x.err == nil {
		x.err = x.f.SetColWidth(SheetCategories, "A", "A", 30)
	}
}

func (x *xlsxWriter) heatmap(h *heatmap.Heatmap) {
	names := []string{"Date", "Day"}
	for hr := 0; hr < 24; hr++ {
		names = append(names, strconv.Itoa(hr))
	}
	x.header(SheetHeatmap, names)

	for i, d := range h.Days {
		rowNum := i + 2
		values := []any{d.Date, d.DayOfWeek.String()}
		for _, c := range d.Hours {
			if c.Empty() {
				values = append(values, nil)
				continue
			}
			values = append(values, c.CategoryIndex+1)
		}
		x.row(SheetHeatmap, rowNum, values)

		for hr, c := range d.Hours {
			if c.Empty() {
				continue
			}
			x.fill(rowNum, hr+3, c.CategoryIndex)
		}
	}
}

// fill colors one heatmap cell with its category color.
func (x *xlsxWriter) fill(rowNum, col, index int) {
	if x.err != nil {
		return
	}
	if x.fills == nil {
		x.fills = make(map[int]int)
	}
	style, ok := x.fills[index]
	if !ok {
		bg := heatmap.Color(index)
		fg := "#FFFFFF"
		if heatmap.IsLightColor(bg) {
			fg = "#000000"
		}
		var err error
		style, err = x.f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{bg}},
			Font: &excelize.Font{Color: fg},
		})
		if err != nil {
			x.err = fmt.Errorf("create fill style: %w", err)
			return
		}
		x.fills[index] = style
	}
	cell, err := excelize.CoordinatesToCellName(col, rowNum)
	if err != nil {
		x.err = err
		return
	}
	x.err = x.f.SetCellStyle(SheetHeatmap, cell, cell, style)
}

func (x *xlsxWriter) events(rows []stats.ExportRow) {
	x.header(SheetEvents, stats.ExportHeader)
	for i, r := range rows {
		hours, err := strconv.ParseFloat(r.Hours, 64)
		if err != nil {
			hours = 0
		}
		x.row(SheetEvents, i+2, []any{r.Date, r.Event, r.Rule, r.Normalized, hours})
	}
}
