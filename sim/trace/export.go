package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// outcomeColumns are the results CSV columns, in OutcomeRecord field order.
var outcomeColumns = []string{
	"vmId", "allocationTime", "allocated", "fromHost", "toHost", "migrationTime", "migrationSuccess",
}

var completionColumns = []string{
	"vmId", "fromHost", "toHost", "time", "success",
}

// RunHeader describes one run in the YAML sidecar written next to its CSVs.
type RunHeader struct {
	RunID     string   `yaml:"run_id"`
	CreatedAt string   `yaml:"created_at,omitempty"`
	TimeUnit  string   `yaml:"time_unit"`
	Policy    string   `yaml:"policy"`
	Hosts     int      `yaml:"hosts"`
	VMs       int      `yaml:"vms"`
	Seed      int64    `yaml:"seed"`
	EndTime   int64    `yaml:"end_time"`
	Summary   *Summary `yaml:"summary,omitempty"`
}

// RunFiles lists the paths written by ExportRun.
type RunFiles struct {
	Outcomes    string
	Completions string
	Header      string
}

// RunBaseName returns the file stem "<policy>_hosts_<n>_<seed>".
func RunBaseName(policy string, hosts int, seed int64) string {
	return fmt.Sprintf("%s_hosts_%d_%d", policy, hosts, seed)
}

// ExportCSV writes outcome records as CSV with a header row.
func ExportCSV(w io.Writer, outcomes []OutcomeRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(outcomeColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, o := range outcomes {
		row := []string{
			strconv.FormatInt(o.VMID, 10),
			strconv.FormatFloat(o.DecisionLatencyMs, 'f', -1, 64),
			strconv.FormatBool(o.Allocated),
			strconv.FormatInt(o.SourceHostID, 10),
			strconv.FormatInt(o.TargetHostID, 10),
			strconv.FormatFloat(o.MigrationLatencyMs, 'f', -1, 64),
			strconv.FormatBool(o.MigrationSucceeded),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for VM %d: %w", o.VMID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCompletionsCSV writes completion records as CSV with a header row.
func ExportCompletionsCSV(w io.Writer, completions []CompletionRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(completionColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, c := range completions {
		row := []string{
			strconv.FormatInt(c.VMID, 10),
			strconv.FormatInt(c.SourceHostID, 10),
			strconv.FormatInt(c.TargetHostID, 10),
			strconv.FormatInt(c.Time, 10),
			strconv.FormatBool(c.Success),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for VM %d: %w", c.VMID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses outcome records written by ExportCSV.
func ReadCSV(r io.Reader) ([]OutcomeRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(outcomeColumns)

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var records []OutcomeRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		rec, err := parseOutcomeRow(row)
		if err != nil {
			return nil, fmt.Errorf("parsing CSV line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseOutcomeRow(row []string) (OutcomeRecord, error) {
	var rec OutcomeRecord
	var err error
	if rec.VMID, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return rec, fmt.Errorf("vmId: %w", err)
	}
	if rec.DecisionLatencyMs, err = strconv.ParseFloat(row[1], 64); err != nil {
		return rec, fmt.Errorf("allocationTime: %w", err)
	}
	if rec.Allocated, err = strconv.ParseBool(row[2]); err != nil {
		return rec, fmt.Errorf("allocated: %w", err)
	}
	if rec.SourceHostID, err = strconv.ParseInt(row[3], 10, 64); err != nil {
		return rec, fmt.Errorf("fromHost: %w", err)
	}
	if rec.TargetHostID, err = strconv.ParseInt(row[4], 10, 64); err != nil {
		return rec, fmt.Errorf("toHost: %w", err)
	}
	if rec.MigrationLatencyMs, err = strconv.ParseFloat(row[5], 64); err != nil {
		return rec, fmt.Errorf("migrationTime: %w", err)
	}
	if rec.MigrationSucceeded, err = strconv.ParseBool(row[6]); err != nil {
		return rec, fmt.Errorf("migrationSuccess: %w", err)
	}
	return rec, nil
}

// ExportRun writes the outcome CSV, the completion CSV and the YAML header for one run
// into dir, creating it if needed. A header without a RunID gets a fresh one.
func ExportRun(dir string, header *RunHeader, log *ResultLog) (RunFiles, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return RunFiles{}, fmt.Errorf("creating results directory: %w", err)
	}
	if header.RunID == "" {
		header.RunID = uuid.NewString()
	}
	if header.CreatedAt == "" {
		header.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if header.TimeUnit == "" {
		header.TimeUnit = "microseconds"
	}
	if header.Summary == nil {
		header.Summary = Summarize(log)
	}

	base := filepath.Join(dir, RunBaseName(header.Policy, header.Hosts, header.Seed))
	files := RunFiles{
		Outcomes:    base + ".csv",
		Completions: base + "_completions.csv",
		Header:      base + ".yaml",
	}

	if err := writeFile(files.Outcomes, func(w io.Writer) error {
		return ExportCSV(w, log.Outcomes())
	}); err != nil {
		return files, fmt.Errorf("writing outcomes: %w", err)
	}
	if err := writeFile(files.Completions, func(w io.Writer) error {
		return ExportCompletionsCSV(w, log.Completions())
	}); err != nil {
		return files, fmt.Errorf("writing completions: %w", err)
	}

	headerData, err := yaml.Marshal(header)
	if err != nil {
		return files, fmt.Errorf("marshaling run header: %w", err)
	}
	if err := os.WriteFile(files.Header, headerData, 0644); err != nil {
		return files, fmt.Errorf("writing run header: %w", err)
	}
	return files, nil
}

// LoadRunHeader reads a YAML header written by ExportRun.
func LoadRunHeader(path string) (*RunHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run header: %w", err)
	}
	var header RunHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parsing run header: %w", err)
	}
	return &header, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
