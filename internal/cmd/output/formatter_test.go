package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/sources"
	"github.com/pokecompanion/namesync/pkg/sync"
)

func testReport() *sync.Report {
	started := utc.Now()
	return &sync.Report{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: utc.Time{Time: started.Time.Add(2 * time.Second)},
		Results: []*sync.Result{
			{
				Dataset:       "pokemon",
				Status:        sync.StatusPublished,
				StoreCount:    3,
				ArtifactCount: 2,
				Divergences: []differ.Divergence{
					{Index: 3, Left: `{"id":3}`, Right: differ.Missing, Reason: differ.ReasonMissingPublished},
				},
				Commit: &sources.Commit{SHA: "0123456789abcdef", URL: "https://example.test/c"},
			},
			{
				Dataset: "moves",
				Status:  sync.StatusErrored,
				Err:     errors.New("store unavailable"),
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestJSONFormatterDoesNotEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, map[string]string{"name": "Farfetch'd <&>"}))
	assert.Contains(t, buf.String(), "Farfetch'd <&>")
}

func TestReportViewJSON(t *testing.T) {
	view := NewReportView(testReport())
	require.Len(t, view.Results, 2)
	assert.Equal(t, "2s", view.Duration)
	assert.Equal(t, "0123456789abcdef", view.Results[0].Commit)
	assert.Equal(t, map[differ.Reason]int{differ.ReasonMissingPublished: 1}, view.Results[0].Reasons)
	assert.Equal(t, "store unavailable", view.Results[1].Error)

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, view))
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)
	assert.Contains(t, buf.String(), `"status": "errored"`)
}

func TestReportViewTable(t *testing.T) {
	view := NewReportView(testReport())

	narrow := view.TableData(false)
	assert.Len(t, narrow.Headers, 6)
	assert.Equal(t, []string{"pokemon", "published", "3", "2", "1", "0123456789ab"}, narrow.Rows[0])

	wide := view.TableData(true)
	assert.Len(t, wide.Headers, 9)
	assert.Equal(t, "missing_published=1", wide.Rows[0][6])
	assert.Equal(t, "store unavailable", wide.Rows[1][8])

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, view))
	assert.Contains(t, buf.String(), "pokemon")
	assert.Contains(t, buf.String(), "errored")
}

func TestComparisonViewTruncatesNarrowTable(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	view := NewComparisonView(&sync.Comparison{
		Schema:        dataset.Moves(),
		Authoritative: []dataset.Entity{{ID: 1}},
		Divergences: []differ.Divergence{
			{Index: 1, Left: string(long), Right: differ.Missing, Reason: differ.ReasonMissingPublished},
		},
	})

	assert.Equal(t, "moves", view.Dataset)
	assert.Equal(t, 1, view.Summary.Total)

	narrow := view.TableData(false)
	assert.Len(t, []rune(narrow.Rows[0][2]), maxCellWidth)
	assert.Equal(t, differ.Missing, narrow.Rows[0][3])

	wide := view.TableData(true)
	assert.Equal(t, string(long), wide.Rows[0][2])
}

func TestDatasetRowsTableByReflection(t *testing.T) {
	rows := NewDatasetRows(dataset.Builtin())
	require.Len(t, rows, 2)

	data := (&TableFormatter{}).convertToTableData(rows)
	require.NotNil(t, data)
	assert.Equal(t, []string{"Name", "Collection", "Sort Key", "Artifact Path", "Locales", "Label"}, data.Headers)
	assert.Equal(t, "pokemon", data.Rows[0][0])
	assert.Equal(t, "en,de,es,fr,it,ja-hrkt,zh-hans", data.Rows[0][4])
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, NewDatasetRows([]*dataset.Schema{dataset.Moves()})))
	assert.Contains(t, buf.String(), "name: moves")
	assert.Contains(t, buf.String(), "artifact_path: src/lib/data/moves.json")
}
