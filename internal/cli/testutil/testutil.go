// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/crossfilter/internal/cli/output"
)

// PatientsCSV holds five patients, three of them Active.
const PatientsCSV = `patient_id,age,status,site
P1,34,Active,A
P2,51,Inactive,B
P3,67,Active,C
P4,29,Pending,A
P5,45,Active,B
`

// SamplesCSV holds seven samples referencing PatientsCSV by patient_id.
const SamplesCSV = `sample_id,patient_id,sample_type,volume
S1,P1,Blood,1.5
S2,P1,Urine,2.0
S3,P2,Blood,3.5
S4,P3,Tissue,1.0
S5,P4,Blood,0.5
S6,P5,Urine,4.0
S7,P5,Blood,2.5
`

// Project is a temporary crossfilter workspace.
type Project struct {
	Dir       string
	DataDir   string
	StatePath string
	StorePath string
}

// SetupTestProject creates a temporary project with the clinical CSV files
// under data/. Nothing is loaded yet.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	tmpDir := t.TempDir()
	p := &Project{
		Dir:       tmpDir,
		DataDir:   filepath.Join(tmpDir, "data"),
		StatePath: filepath.Join(tmpDir, ".crossfilter", "state.db"),
		StorePath: filepath.Join(tmpDir, ".crossfilter", "store.duckdb"),
	}

	if err := os.MkdirAll(p.DataDir, 0750); err != nil {
		t.Fatalf("failed to create directory %s: %v", p.DataDir, err)
	}
	files := map[string]string{
		"patients.csv": PatientsCSV,
		"samples.csv":  SamplesCSV,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(p.DataDir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return p
}

// StoreArgs returns the flags pointing a command at the project's stores.
func (p *Project) StoreArgs() []string {
	return []string{"--state", p.StatePath, "--database", p.StorePath}
}

// WriteFile writes content to a file relative to the project directory.
func (p *Project) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(p.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
