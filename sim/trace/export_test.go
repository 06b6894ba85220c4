package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func sampleLog() *ResultLog {
	log := NewResultLog()
	log.RecordOutcome(OutcomeRecord{VMID: 4, DecisionLatencyMs: 0.125, Allocated: true,
		SourceHostID: 1, TargetHostID: 3, MigrationSucceeded: true})
	log.RecordOutcome(OutcomeRecord{VMID: 5, DecisionLatencyMs: 0.5, Allocated: false,
		SourceHostID: 1, TargetHostID: NoHost})
	log.RecordCompletion(CompletionRecord{VMID: 4, SourceHostID: 1, TargetHostID: 3, Time: 2_500_000, Success: true})
	return log
}

func TestExportCSV_ColumnsAndRows(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, sampleLog().Outcomes()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"vmId,allocationTime,allocated,fromHost,toHost,migrationTime,migrationSuccess",
		"4,0.125,true,1,3,0,true",
		"5,0.5,false,1,-1,0,false",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReadCSV_RoundTrip_PreservesAllFields(t *testing.T) {
	original := sampleLog().Outcomes()
	var buf bytes.Buffer
	if err := ExportCSV(&buf, original); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != len(original) {
		t.Fatalf("records = %d, want %d", len(loaded), len(original))
	}
	for i := range original {
		if loaded[i] != original[i] {
			t.Errorf("record %d = %+v, want %+v", i, loaded[i], original[i])
		}
	}
}

func TestReadCSV_MalformedRow_ReturnsError(t *testing.T) {
	input := "vmId,allocationTime,allocated,fromHost,toHost,migrationTime,migrationSuccess\n" +
		"4,fast,true,1,3,0,true\n"
	_, err := ReadCSV(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "allocationTime") {
		t.Errorf("expected allocationTime parse error, got %v", err)
	}
}

func TestExportRun_WritesAllFiles(t *testing.T) {
	// GIVEN a populated log and a header without a run ID
	dir := filepath.Join(t.TempDir(), "results", "best-fit")
	header := &RunHeader{Policy: "best-fit", Hosts: 5, VMs: 15, Seed: 3, EndTime: 9_000_000}

	// WHEN exported
	files, err := ExportRun(dir, header, sampleLog())
	if err != nil {
		t.Fatal(err)
	}

	// THEN the files follow the naming scheme and the header carries a fresh run ID
	if got := filepath.Base(files.Outcomes); got != "best-fit_hosts_5_3.csv" {
		t.Errorf("outcomes file = %s", got)
	}
	if got := filepath.Base(files.Completions); got != "best-fit_hosts_5_3_completions.csv" {
		t.Errorf("completions file = %s", got)
	}
	if _, err := uuid.Parse(header.RunID); err != nil {
		t.Errorf("run ID %q is not a UUID: %v", header.RunID, err)
	}

	loaded, err := LoadRunHeader(files.Header)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RunID != header.RunID || loaded.Policy != "best-fit" || loaded.Seed != 3 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if loaded.TimeUnit != "microseconds" {
		t.Errorf("time unit = %q", loaded.TimeUnit)
	}
	if loaded.Summary == nil || loaded.Summary.Attempts != 2 || loaded.Summary.Completions != 1 {
		t.Errorf("summary mismatch: %+v", loaded.Summary)
	}

	data, err := os.ReadFile(files.Completions)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "4,1,3,2500000,true") {
		t.Errorf("completion row missing:\n%s", data)
	}
}

func TestExportRun_KeepsGivenRunID(t *testing.T) {
	header := &RunHeader{RunID: "fixed", Policy: "simple", Hosts: 1, Seed: 1}
	if _, err := ExportRun(t.TempDir(), header, NewResultLog()); err != nil {
		t.Fatal(err)
	}
	if header.RunID != "fixed" {
		t.Errorf("run ID overwritten: %s", header.RunID)
	}
}
