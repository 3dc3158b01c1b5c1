package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	keyJSON   = "json"
	keyFormat = "format"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// format resolves --json and --format into one output format.
func (a *App) format() string {
	if a.Viper.GetBool(keyJSON) {
		return formatJSON
	}
	if f := a.Viper.GetString(keyFormat); f != "" {
		return f
	}
	return formatTable
}

// render writes data as JSON or YAML, or the styled text table returns.
func (a *App) render(cmd *cobra.Command, data any, table func() string) error {
	return writeAs(cmd.OutOrStdout(), a.format(), data, table)
}

func writeAs(w io.Writer, format string, data any, table func() string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		_, err := fmt.Fprint(w, table())
		return err
	default:
		return fmt.Errorf("unknown output format %q (want %s, %s or %s)", format, formatTable, formatJSON, formatYAML)
	}
}

type taskOut struct {
	ID       string  `json:"id" yaml:"id"`
	Date     string  `json:"date" yaml:"date"`
	Project  string  `json:"project,omitempty" yaml:"project,omitempty"`
	Team     string  `json:"team" yaml:"team"`
	Activity string  `json:"activity" yaml:"activity"`
	User     string  `json:"user" yaml:"user"`
	Hours    float64 `json:"hours" yaml:"hours"`
	Status   string  `json:"status" yaml:"status"`
	Comment  string  `json:"comment,omitempty" yaml:"comment,omitempty"`
}

func toTaskOut(t domain.Task) taskOut {
	return taskOut{
		ID:       t.ID,
		Date:     t.Day(),
		Project:  t.ProjectName,
		Team:     t.TeamName,
		Activity: t.ActivityName,
		User:     t.UserName,
		Hours:    t.Duration,
		Status:   string(t.Status),
		Comment:  t.Comment,
	}
}

func toTaskOuts(tasks []domain.Task) []taskOut {
	out := make([]taskOut, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskOut(t))
	}
	return out
}

type pageOut struct {
	Tasks      []taskOut `json:"tasks" yaml:"tasks"`
	Page       int       `json:"page" yaml:"page"`
	PerPage    int       `json:"perPage" yaml:"perPage"`
	TotalItems int       `json:"totalItems" yaml:"totalItems"`
}

// parseDay accepts YYYY-MM-DD or a full timestamp; empty means now.
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	return domain.ParseTimestamp(s)
}
