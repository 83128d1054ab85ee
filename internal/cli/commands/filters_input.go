package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// addFilterFlags registers the flags read by readFilters.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("filters", "f", "", "filter file, JSON or YAML (- for stdin)")
	cmd.Flags().StringP("where", "w", "", "inline filter list, JSON or YAML")
	cmd.Flags().String("owner", "", "tag untagged filters with this table")
}

// readFilters collects the command's filters: the file's first, then the
// inline ones.
func readFilters(cmd *cobra.Command) ([]filter.Node, error) {
	var nodes []filter.Node

	if path, _ := cmd.Flags().GetString("filters"); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read filters: %w", err)
		}
		fromFile, err := ParseFilters(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		nodes = append(nodes, fromFile...)
	}

	if inline, _ := cmd.Flags().GetString("where"); inline != "" {
		parsed, err := ParseFilters([]byte(inline))
		if err != nil {
			return nil, fmt.Errorf("failed to parse --where: %w", err)
		}
		nodes = append(nodes, parsed...)
	}

	if owner, _ := cmd.Flags().GetString("owner"); owner != "" {
		nodes = filter.WithTable(nodes, owner)
	}
	return nodes, nil
}

// ParseFilters decodes a filter document: a list of filter nodes, or an
// object holding one under "filters". YAML and JSON are both accepted.
func ParseFilters(data []byte) ([]filter.Node, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if m, ok := doc.(map[string]any); ok {
		if _, found := m["filters"]; !found {
			return nil, fmt.Errorf("expected a list of filters or a filters key")
		}
		doc = m["filters"]
	}
	if doc == nil {
		return []filter.Node{}, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return filter.DecodeList(raw)
}
