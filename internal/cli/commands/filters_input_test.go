package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "json list",
			input: `[{"column":"status","operator":"eq","value":"Active","tableName":"patients"}]`,
			want:  []string{`patients.status eq "Active"`},
		},
		{
			name: "yaml list",
			input: `
- column: age
  operator: between
  value: [30, 50]
  tableName: patients
- or:
    - {column: site, operator: eq, value: A}
    - {column: site, operator: eq, value: B}
`,
			want: []string{`patients.age between [30, 50]`, `(site eq "A" OR site eq "B")`},
		},
		{
			name:  "filters key",
			input: "filters:\n  - {column: volume, operator: gt, value: 2.5, tableName: samples}\n",
			want:  []string{`samples.volume gt 2.5`},
		},
		{name: "empty document", input: "", want: []string{}},
		{name: "empty list", input: "[]", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := ParseFilters([]byte(tt.input))
			require.NoError(t, err)
			got := make([]string, len(nodes))
			for i, n := range nodes {
				got[i] = n.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilters_Errors(t *testing.T) {
	_, err := ParseFilters([]byte("other: 1\n"))
	assert.ErrorContains(t, err, "expected a list of filters")

	_, err = ParseFilters([]byte(`[{"column":"a","operator":"like","value":1}]`))
	var decodeErr *filter.DecodeError
	assert.True(t, errors.As(err, &decodeErr))

	_, err = ParseFilters([]byte("[unclosed"))
	assert.Error(t, err)
}

func TestReadFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {column: status, operator: eq, value: Active}\n"), 0o600))

	cmd := &cobra.Command{}
	addFilterFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--filters", path,
		"--where", `[{"column":"volume","operator":"gt","value":1,"tableName":"samples"}]`,
		"--owner", "patients",
	}))

	nodes, err := readFilters(cmd)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, `patients.status eq "Active"`, nodes[0].String(), "untagged filters get the owner")
	assert.Equal(t, `samples.volume gt 1`, nodes[1].String(), "tagged filters keep their table")
}

func TestReadFilters_Stdin(t *testing.T) {
	cmd := &cobra.Command{}
	addFilterFlags(cmd)
	cmd.SetIn(strings.NewReader(`{"filters": []}`))
	require.NoError(t, cmd.Flags().Parse([]string{"-f", "-"}))

	nodes, err := readFilters(cmd)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestReadFilters_MissingFile(t *testing.T) {
	cmd := &cobra.Command{}
	addFilterFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"-f", filepath.Join(t.TempDir(), "nope.json")}))

	_, err := readFilters(cmd)
	assert.ErrorContains(t, err, "failed to read filters")
}
