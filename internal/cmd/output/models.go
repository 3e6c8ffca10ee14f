package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// maxCellWidth truncates serialized entities in narrow tables.
const maxCellWidth = 60

// Cell renders a value for a table cell.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ResultView is the printable form of one dataset result.
type ResultView struct {
	Dataset       string                `json:"dataset" yaml:"dataset"`
	Status        sync.Status           `json:"status" yaml:"status"`
	StoreCount    int                   `json:"store_count" yaml:"store_count"`
	ArtifactCount int                   `json:"artifact_count" yaml:"artifact_count"`
	Updates       int                   `json:"updates" yaml:"updates"`
	Reasons       map[differ.Reason]int `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Message       string                `json:"message,omitempty" yaml:"message,omitempty"`
	Commit        string                `json:"commit,omitempty" yaml:"commit,omitempty"`
	URL           string                `json:"url,omitempty" yaml:"url,omitempty"`
	Error         string                `json:"error,omitempty" yaml:"error,omitempty"`
	Duration      string                `json:"duration" yaml:"duration"`
}

// ReportView is the printable form of a run report.
type ReportView struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	DryRun     bool          `json:"dry_run" yaml:"dry_run"`
	StartedAt  string        `json:"started_at" yaml:"started_at"`
	FinishedAt string        `json:"finished_at" yaml:"finished_at"`
	Duration   string        `json:"duration" yaml:"duration"`
	Results    []*ResultView `json:"results" yaml:"results"`
}

// NewReportView converts a report for output.
func NewReportView(report *sync.Report) *ReportView {
	view := &ReportView{
		RunID:      report.RunID,
		DryRun:     report.DryRun,
		StartedAt:  report.StartedAt.Time.Format(constants.TimeFormatISO8601),
		FinishedAt: report.FinishedAt.Time.Format(constants.TimeFormatISO8601),
		Duration:   report.Duration().String(),
		Results:    make([]*ResultView, 0, len(report.Results)),
	}

	for _, r := range report.Results {
		rv := &ResultView{
			Dataset:       r.Dataset,
			Status:        r.Status,
			StoreCount:    r.StoreCount,
			ArtifactCount: r.ArtifactCount,
			Updates:       len(r.Divergences),
			Message:       r.Message,
			Duration:      r.Duration.String(),
		}
		if len(r.Divergences) > 0 {
			rv.Reasons = differ.Summarize(r.Divergences).Reasons
		}
		if r.Commit != nil {
			rv.Commit = r.Commit.SHA
			rv.URL = r.Commit.URL
		}
		if r.Err != nil {
			rv.Error = r.Err.Error()
		}
		view.Results = append(view.Results, rv)
	}
	return view
}

// TableData implements Tabular.
func (v *ReportView) TableData(wide bool) Data {
	headers := []string{"DATASET", "STATUS", "STORE", "ARTIFACT", "UPDATES", "COMMIT"}
	align := []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "REASONS", "DURATION", "ERROR")
		align = append(align, AlignLeft, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(v.Results))
	for _, r := range v.Results {
		row := []string{
			r.Dataset,
			string(r.Status),
			strconv.Itoa(r.StoreCount),
			strconv.Itoa(r.ArtifactCount),
			strconv.Itoa(r.Updates),
			shortSHA(r.Commit),
		}
		if wide {
			row = append(row, formatReasons(r.Reasons), r.Duration, r.Error)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ComparisonView is the printable form of one dataset diff.
type ComparisonView struct {
	Dataset       string              `json:"dataset" yaml:"dataset"`
	Authoritative int                 `json:"authoritative" yaml:"authoritative"`
	Published     int                 `json:"published" yaml:"published"`
	Summary       differ.Summary      `json:"summary" yaml:"summary"`
	Divergences   []differ.Divergence `json:"divergences" yaml:"divergences"`
}

// NewComparisonView converts a comparison for output.
func NewComparisonView(c *sync.Comparison) *ComparisonView {
	return &ComparisonView{
		Dataset:       c.Schema.Name,
		Authoritative: len(c.Authoritative),
		Published:     len(c.Published),
		Summary:       differ.Summarize(c.Divergences),
		Divergences:   c.Divergences,
	}
}

// TableData implements Tabular.
func (v *ComparisonView) TableData(wide bool) Data {
	rows := make([][]string, 0, len(v.Divergences))
	for _, d := range v.Divergences {
		left, right := d.Left, d.Right
		if !wide {
			left, right = truncate(left), truncate(right)
		}
		rows = append(rows, []string{strconv.Itoa(d.Index), string(d.Reason), left, right})
	}
	return Data{
		Headers:         []string{"INDEX", "REASON", "AUTHORITATIVE", "PUBLISHED"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// DatasetRow is the printable form of a dataset schema.
type DatasetRow struct {
	Name         string   `json:"name" yaml:"name"`
	Collection   string   `json:"collection" yaml:"collection"`
	SortKey      string   `json:"sort_key" yaml:"sort_key"`
	ArtifactPath string   `json:"artifact_path" yaml:"artifact_path"`
	Locales      []string `json:"locales" yaml:"locales"`
	Label        string   `json:"label" yaml:"label"`
}

// NewDatasetRows converts schemas for output.
func NewDatasetRows(schemas []*dataset.Schema) []DatasetRow {
	rows := make([]DatasetRow, 0, len(schemas))
	for _, s := range schemas {
		rows = append(rows, DatasetRow{
			Name:         s.Name,
			Collection:   s.Collection,
			SortKey:      s.SortKey,
			ArtifactPath: s.ArtifactPath,
			Locales:      s.Codes(),
			Label:        s.Label,
		})
	}
	return rows
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxCellWidth {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxCellWidth-3]) + "..."
}

func formatReasons(reasons map[differ.Reason]int) string {
	if len(reasons) == 0 {
		return ""
	}
	parts := make([]string, 0, len(reasons))
	for reason, n := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
