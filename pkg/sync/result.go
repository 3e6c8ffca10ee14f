package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sources"
)

// Status is the outcome of one dataset pipeline.
type Status string

// Pipeline outcomes.
const (
	StatusUnchanged Status = "unchanged"
	StatusPublished Status = "published"
	StatusDryRun    Status = "dry-run"
	StatusErrored   Status = "errored"
)

// Comparison is the fetched, normalized and aligned state of one dataset.
type Comparison struct {
	Schema        *dataset.Schema
	Authoritative []dataset.Entity // sorted by id
	Published     []dataset.Entity // sorted by id
	Divergences   []differ.Divergence
}

// Positions returns the number of aligned positions walked by the diff.
func (c *Comparison) Positions() int {
	return max(len(c.Authoritative), len(c.Published))
}

// Result is the outcome of one dataset pipeline run.
type Result struct {
	Dataset       string
	Status        Status
	StoreCount    int
	ArtifactCount int
	Divergences   []differ.Divergence
	Message       string          // commit message of the decided action, if any
	Commit        *sources.Commit // set when published
	Err           error           // set when errored
	StartedAt     utc.Time
	Duration      time.Duration
}

// HasChanges returns true if the dataset diverged.
func (r *Result) HasChanges() bool {
	return len(r.Divergences) > 0
}

// Summary returns a one-line description of the result.
func (r *Result) Summary() string {
	switch r.Status {
	case StatusErrored:
		return fmt.Sprintf("%s: errored: %v", r.Dataset, r.Err)
	case StatusPublished:
		sha := ""
		if r.Commit != nil {
			sha = r.Commit.SHA
		}
		return fmt.Sprintf("%s: published %d updates (%s)", r.Dataset, len(r.Divergences), sha)
	case StatusDryRun:
		return fmt.Sprintf("%s: %d updates (dry run)", r.Dataset, len(r.Divergences))
	default:
		return fmt.Sprintf("%s: no changes", r.Dataset)
	}
}

// Report collects the results of one run across datasets.
type Report struct {
	RunID      string
	DryRun     bool
	StartedAt  utc.Time
	FinishedAt utc.Time
	Results    []*Result
}

// Count returns the number of results with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// HasErrors reports whether any dataset errored.
func (r *Report) HasErrors() bool {
	return r.Count(StatusErrored) > 0
}

// Err joins the errors of every errored dataset, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Dataset, res.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Time.Sub(r.StartedAt.Time)
}

// Summary returns a human-readable summary of the run.
func (r *Report) Summary() string {
	if len(r.Results) == 0 {
		return "No datasets ran"
	}
	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		parts = append(parts, res.Summary())
	}
	return strings.Join(parts, "; ")
}
