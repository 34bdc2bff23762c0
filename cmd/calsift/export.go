package main

import (
	"fmt"
	"io"

	"github.com/deepak-highbeam/calsift/internal/report"
	"github.com/deepak-highbeam/calsift/internal/stats"
)

// writeWorkbook gathers stats and the heatmap alongside rows for the XLSX
// export.
func writeWorkbook(a *app, w io.Writer, rows []stats.ExportRow) error {
	s, err := a.ctrl.Stats()
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}
	h, err := a.ctrl.Heatmap()
	if err != nil {
		return fmt.Errorf("build heatmap: %w", err)
	}
	return report.WriteXLSX(w, s, h, rows)
}
