package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/config"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/db"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/importer"
)

const testDoc = `{
	"date": "2025-10-01",
	"plant_unit": "CM 220",
	"readings": [
		{"parameter_id": "feed", "hour7": 10, "hour15": 30},
		{"parameter_id": "blaine", "hour1": 3300, "hour2": 3400}
	]
}`

func ptr(v float64) *float64 { return &v }

// setupCLI points the commands at a fresh database seeded with one counter
// and one quality parameter.
func setupCLI(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ccr.db")

	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	params := []*models.ParameterSetting{
		{ID: "feed", Parameter: "Feed", Unit: "ton", Category: "Cement Mill", PlantUnit: "CM 220", IsCounter: true},
		{ID: "blaine", Parameter: "Blaine", Unit: "cm2/g", Category: "Cement Mill", PlantUnit: "CM 220", OpcMin: ptr(3200), OpcMax: ptr(3600)},
	}
	for _, p := range params {
		if err := database.UpsertParameterSetting(context.Background(), p); err != nil {
			t.Fatalf("UpsertParameterSetting failed: %v", err)
		}
	}
	if err := database.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		c := &config.Config{
			DatabasePath: dbPath,
			StoreBackend: config.BackendSQLite,
			LogLevel:     "error",
			LogFormat:    "text",
			CacheTTL:     time.Hour,
		}
		if mutate != nil {
			mutate(c)
		}
		return c, nil
	}
	t.Cleanup(func() { loadConfig = orig })
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	jsonOutput, importFooters, footerChart = false, false, false
	databasePath, logLevel, analysisChart = "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func decode(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to decode %q: %v", out, err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("version printed nothing")
	}
}

func TestImportFooterAnalysisFlow(t *testing.T) {
	setupCLI(t, nil)
	ctx := context.Background()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cm220.json"), []byte(testDoc), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out, err := execute(t, ctx, "import", dir, "--footers", "--json")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var imported []importer.Imported
	decode(t, out, &imported)
	if len(imported) != 1 || imported[0].Count != 2 || imported[0].PlantUnit != "CM 220" {
		t.Fatalf("unexpected import result: %+v", imported)
	}

	out, err = execute(t, ctx, "footer", "show", "--date", "2025-10-01", "--unit", "CM 220", "--json")
	if err != nil {
		t.Fatalf("footer show failed: %v", err)
	}
	var records []models.FooterRecord
	decode(t, out, &records)
	if len(records) != 1 || records[0].ParameterID != "feed" {
		t.Fatalf("unexpected footer: %+v", records)
	}
	if records[0].Counters.Shift1 != 20 {
		t.Errorf("shift1 = %v, want 20", records[0].Counters.Shift1)
	}

	analysisArgs := []string{"analysis", "--category", "Cement Mill", "--unit", "CM 220", "--year", "2025", "--month", "10", "--json"}
	out, err = execute(t, ctx, analysisArgs...)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	var a models.CopAnalysis
	decode(t, out, &a)
	if len(a.Parameters) != 1 || a.Parameters[0].ParameterID != "blaine" {
		t.Fatalf("unexpected parameters: %+v", a.Parameters)
	}
	if a.Parameters[0].PercentInRange != 100 {
		t.Errorf("percent in range = %v, want 100", a.Parameters[0].PercentInRange)
	}

	out, err = execute(t, ctx, "cache", "stats", "--json")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	var stats models.CacheStats
	decode(t, out, &stats)
	if stats.TotalEntries != 1 || stats.ActiveEntries != 1 {
		t.Errorf("stats = %+v, want one active entry", stats)
	}

	out, err = execute(t, ctx, "cache", "invalidate", "--category", "cement  mill", "--unit", "cm 220", "--year", "2025", "--month", "10", "--json")
	if err != nil {
		t.Fatalf("cache invalidate failed: %v", err)
	}
	var inv map[string]any
	decode(t, out, &inv)
	if inv["deleted"] != float64(1) {
		t.Errorf("invalidate = %+v, want one deletion", inv)
	}
}

func TestFooterGenerate_TextOutput(t *testing.T) {
	setupCLI(t, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(testDoc), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := execute(t, ctx, "import", path); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	out, err := execute(t, ctx, "footer", "generate", "--date", "2025-10-01", "--unit", "CM 220")
	if err != nil {
		t.Fatalf("footer generate failed: %v", err)
	}
	for _, want := range []string{"2025-10-01", "CM 220", "feed", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFooterGenerate_InvalidDate(t *testing.T) {
	setupCLI(t, nil)

	if _, err := execute(t, context.Background(), "footer", "generate", "--date", "01/10/2025", "--unit", "CM 220"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestCacheSweep_Empty(t *testing.T) {
	setupCLI(t, nil)

	out, err := execute(t, context.Background(), "cache", "sweep")
	if err != nil {
		t.Fatalf("cache sweep failed: %v", err)
	}
	if !strings.Contains(out, "deleted 0 expired entries") {
		t.Errorf("output = %q", out)
	}
}

func TestRunCmd_StopsOnCancel(t *testing.T) {
	setupCLI(t, func(c *config.Config) {
		c.HTTPAddr = "127.0.0.1:0"
		c.ReadingsDir = t.TempDir()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := execute(t, ctx, "run"); err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestLogEvent(t *testing.T) {
	events := []services.ServiceEvent{
		services.ReadingsImportedEvent{Imported: &importer.Imported{Path: "a.json"}},
		services.CacheSweptEvent{Deleted: 2},
		services.ErrorEvent{Service: "importer", Error: io.EOF},
	}
	for _, e := range events {
		logEvent(e)
	}
}
