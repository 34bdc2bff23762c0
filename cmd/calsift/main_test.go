package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/deepak-highbeam/calsift/internal/config"
	"github.com/deepak-highbeam/calsift/internal/pipeline"
	"github.com/deepak-highbeam/calsift/internal/report"
	"github.com/deepak-highbeam/calsift/internal/rules"
)

const sampleCSV = "Summary,Calendar ID,Start,End\n" +
	"Team Meeting,work,2024-03-04 09:00,2024-03-04 10:00\n" +
	"Lunch,work,2024-03-04 12:00,2024-03-04 13:00\n" +
	"Deep work,work,2024-03-05 10:00,2024-03-05 12:00\n"

// setupCLI writes a config rooted in a temp dir and returns its path.
func setupCLI(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DBPath = filepath.Join(cfg.DataDir, "calsift.db")
	cfg.ImportDir = filepath.Join(dir, "inbox")
	cfg.Timezone = "UTC"
	cfg.LogLevel = "error"
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))
	return dir, cfgPath
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadApplyStats(t *testing.T) {
	dir, cfgPath := setupCLI(t)
	csvPath := filepath.Join(dir, "week.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	out, err := run(t, cfgPath, "", "load", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded week.csv - 3 events")

	out, err = run(t, cfgPath, "", "files")
	require.NoError(t, err)
	assert.Contains(t, out, "week.csv - 3 events")

	out, err = run(t, cfgPath, "*meeting*=>Meetings\nLunch=>IGNORE\n", "apply", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Events cleaned: 2 out of 3")

	out, err = run(t, cfgPath, "", "rules", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "*meeting*=>Meetings")

	out, err = run(t, cfgPath, "", "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"analyzed": 2`)
	assert.Contains(t, out, `"name": "deep work"`)
	assert.Contains(t, out, `"name": "meetings"`)

	out, err = run(t, cfgPath, "", "heatmap")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-05 Tue")
}

func TestEmptyWorkingSet(t *testing.T) {
	_, cfgPath := setupCLI(t)

	_, err := run(t, cfgPath, "", "stats")

	assert.ErrorIs(t, err, pipeline.ErrEmptyWorkingSet)
}

func TestRulesSetRejectsEmpty(t *testing.T) {
	_, cfgPath := setupCLI(t)

	_, err := run(t, cfgPath, "no rules here\n", "rules", "set")

	assert.True(t, errors.Is(err, rules.ErrNoRules))
}

func TestRulesTestUnmatched(t *testing.T) {
	dir, cfgPath := setupCLI(t)
	csvPath := filepath.Join(dir, "week.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	_, err := run(t, cfgPath, "", "load", csvPath)
	require.NoError(t, err)

	rulesPath := filepath.Join(dir, "rules.txt")
	require.NoError(t, os.WriteFile(rulesPath, []byte("Lunch=>IGNORE"), 0o644))

	out, err := run(t, cfgPath, "", "rules", "test", "--unmatched", rulesPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Team Meeting")
	assert.NotContains(t, out, "Lunch  ")

	out, err = run(t, cfgPath, "", "rules", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no rules stored")
}

func TestExport(t *testing.T) {
	dir, cfgPath := setupCLI(t)
	csvPath := filepath.Join(dir, "week.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	_, err := run(t, cfgPath, "", "load", csvPath)
	require.NoError(t, err)

	out, err := run(t, cfgPath, "", "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Date,Event,Matching Rule,Normalized,Hours\n"))
	assert.Contains(t, out, "2024-03-05,Deep work,-,Deep work,2.0\n")

	xlsxPath := filepath.Join(dir, "out.xlsx")
	_, err = run(t, cfgPath, "", "export", "--format", "xlsx", "--out", xlsxPath)
	require.NoError(t, err)

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{report.SheetCategories, report.SheetHeatmap, report.SheetEvents}, f.GetSheetList())

	_, err = run(t, cfgPath, "", "export", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown export format")
}

func TestNotesAndClear(t *testing.T) {
	dir, cfgPath := setupCLI(t)
	csvPath := filepath.Join(dir, "week.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	_, err := run(t, cfgPath, "", "load", csvPath)
	require.NoError(t, err)

	_, err = run(t, cfgPath, "", "notes", "set", "q1", "review")
	require.NoError(t, err)

	_, err = run(t, cfgPath, "", "clear")
	require.NoError(t, err)

	out, err := run(t, cfgPath, "", "notes")
	require.NoError(t, err)
	assert.Equal(t, "q1 review\n", out)

	out, err = run(t, cfgPath, "", "files")
	require.NoError(t, err)
	assert.Contains(t, out, "No files loaded.")
}

func TestDBFlagOverridesConfig(t *testing.T) {
	dir, cfgPath := setupCLI(t)
	dbPath := filepath.Join(dir, "other", "alt.db")

	_, err := run(t, cfgPath, "", "--db", dbPath, "notes", "set", "x")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}
