package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle         = lipgloss.NewStyle().Padding(0, 1)
	connectedStyle    = cellStyle.Foreground(lipgloss.Color("#10B981"))
	disconnectedStyle = cellStyle.Foreground(lipgloss.Color("#EF4444"))
	borderStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// writeInstances renders instances in the requested format. An empty list
// is "[]" in json and yaml so scripts can always parse the output.
func writeInstances(w io.Writer, format string, instances []model.Instance) error {
	if instances == nil {
		instances = []model.Instance{}
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(instances)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(instances); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		if len(instances) == 0 {
			_, err := fmt.Fprintln(w, "No instances yet.")
			return err
		}
		_, err := fmt.Fprintln(w, instanceTable(instances))
		return err
	default:
		return validateFormat(format)
	}
}

func instanceTable(instances []model.Instance) string {
	rows := make([][]string, 0, len(instances))
	for _, inst := range instances {
		warming := "inactive"
		if inst.WarmingEnabled {
			warming = "active"
		}
		rows = append(rows, []string{
			strconv.FormatInt(inst.ID, 10),
			inst.Name,
			string(inst.Status),
			warming,
			strconv.Itoa(inst.MessagesToday),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "STATUS", "WARMING", "MESSAGES TODAY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2 && instances[row].IsConnected():
				return connectedStyle
			case col == 2:
				return disconnectedStyle
			default:
				return cellStyle
			}
		}).
		String()
}
