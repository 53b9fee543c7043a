package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"learnloop/internal/core"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	dir    string
	config string
}

func newCLI(t *testing.T, extraYAML string) *cli {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "learnloop.yaml")
	yaml := fmt.Sprintf(`storage:
  driver: sqlite
  sqlite_path: %s
archive:
  driver: fs
  fs_root: %s
log:
  level: error
%s`, filepath.Join(dir, "loop.db"), filepath.Join(dir, "archive"), extraYAML)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return &cli{t: t, dir: dir, config: path}
}

type result struct {
	stdout string
	stderr string
	code   int
}

func (c *cli) run(stdin string, args ...string) result {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", c.config}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// runJSON runs a command with --json, requires success and decodes stdout into v.
func (c *cli) runJSON(v any, args ...string) {
	c.t.Helper()
	res := c.run("", append([]string{"--json"}, args...)...)
	require.Equal(c.t, exitSuccess, res.code, "stderr: %s", res.stderr)
	require.NoError(c.t, json.Unmarshal([]byte(res.stdout), v), res.stdout)
}

func TestVersionNeedsNoEnvironment(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "version"}, nil, &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())
	assert.Equal(t, "learnloop dev\n", stdout.String())
}

func TestIdeaLifecyclePersistsAcrossInvocations(t *testing.T) {
	c := newCLI(t, "")

	var idea core.Idea
	c.runJSON(&idea, "idea", "draft", "--title", "Async standups", "--description", "Replace the daily call")
	assert.Equal(t, int64(1), idea.ID)
	assert.Equal(t, int64(1), idea.Version)
	assert.EqualValues(t, "draft", idea.Status)

	c.runJSON(&idea, "idea", "publish", "1", "--version", "1")
	assert.EqualValues(t, "proposed", idea.Status)
	assert.Equal(t, int64(2), idea.Version)

	stale := c.run("", "idea", "publish", "1", "--version", "1")
	assert.Equal(t, exitDomainError, stale.code)
	assert.Contains(t, stale.stderr, "version conflict")

	skip := c.run("", "idea", "advance", "1", "reflection", "--version", "2")
	assert.Equal(t, exitDomainError, skip.code)
	assert.Contains(t, skip.stderr, "invalid idea transition")

	c.runJSON(&idea, "idea", "advance", "1", "experiment", "--version", "2")
	assert.EqualValues(t, "experiment", idea.Status)

	var drafts []core.Idea
	c.runJSON(&drafts, "idea", "drafts")
	assert.Empty(t, drafts)

	table := c.run("", "idea", "list")
	require.Equal(t, exitSuccess, table.code, table.stderr)
	assert.Contains(t, table.stdout, "PROGRESS")
	assert.Contains(t, table.stdout, "Async standups")
	assert.Contains(t, table.stdout, "50%")

	var deleted deleteReport
	c.runJSON(&deleted, "idea", "delete", "1")
	assert.True(t, deleted.Deleted)
	c.runJSON(&deleted, "idea", "delete", "1")
	assert.False(t, deleted.Deleted)

	missing := c.run("", "idea", "get", "1")
	assert.Equal(t, exitDomainError, missing.code)
	assert.Contains(t, missing.stderr, "idea 1 not found")
}

func TestExperimentOutcomeReflectionFlow(t *testing.T) {
	c := newCLI(t, "")

	var idea core.Idea
	c.runJSON(&idea, "idea", "create", "--title", "Mob programming", "--description", "One keyboard")

	var exp core.Experiment
	c.runJSON(&exp, "experiment", "create",
		"--title", "Friday mob",
		"--description", "Mob every Friday",
		"--hypothesis", "Knowledge spreads",
		"--success-metric", "Two people can fix any module",
		"--falsifiability", "Bus factor stays at one",
		"--idea", "1")
	assert.EqualValues(t, "planned", exp.Status)
	require.NotNil(t, exp.LinkedIdeaID)

	c.runJSON(&exp, "experiment", "advance", "1", "in-progress", "--version", "1")
	c.runJSON(&exp, "experiment", "update", "1", "--status", "completed", "--version", "2")
	assert.EqualValues(t, "completed", exp.Status)

	frozen := c.run("", "experiment", "update", "1", "--title", "Renamed", "--version", "3")
	assert.Equal(t, exitDomainError, frozen.code)
	assert.Contains(t, frozen.stderr, "immutable")

	var outcome core.Outcome
	c.runJSON(&outcome, "outcome", "create", "--experiment", "1", "--result", "Success", "--notes", "everyone shipped")

	var detail core.ExperimentDetail
	c.runJSON(&detail, "experiment", "get", "1")
	require.NotNil(t, detail.Experiment.OutcomeResult)
	assert.EqualValues(t, "Success", *detail.Experiment.OutcomeResult)
	assert.Equal(t, 100, detail.Progress)
	assert.True(t, detail.Idea.Linked)
	assert.False(t, detail.Idea.Missing)

	blocked := c.run("", "experiment", "delete", "1")
	assert.Equal(t, exitDomainError, blocked.code)
	assert.Contains(t, blocked.stderr, "still referenced")

	reflection := `{
  "context": {"emotionBefore": 2, "confidenceBefore": 4},
  "breakdown": {"whatHappened": "We mobbed", "whatWorked": "Rotation", "whatDidntWork": "Long sessions", "surprises": "Juniors led"},
  "growth": {"lessonLearned": "Timebox", "nextAction": "Try 45 minute slots"},
  "result": {"emotionAfter": 4, "confidenceAfter": 8},
  "tags": ["mob", "mob", " team "]
}`
	res := c.run(reflection, "--json", "reflection", "create", "--outcome", "1")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	var created core.Reflection
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &created))
	assert.Equal(t, []string{"mob", "team"}, created.Tags)
	assert.EqualValues(t, "private", created.Visibility)

	bad := c.run(strings.Replace(reflection, `"emotionBefore": 2`, `"emotionBefore": 9`, 1), "reflection", "create", "--outcome", "1")
	assert.Equal(t, exitDomainError, bad.code)
	assert.Contains(t, bad.stderr, "context.emotionBefore")

	var reflections []core.Reflection
	c.runJSON(&reflections, "reflection", "list", "--outcome", "1")
	assert.Len(t, reflections, 1)

	var outcomes []core.Outcome
	c.runJSON(&outcomes, "outcome", "list", "--experiment", "1")
	assert.Len(t, outcomes, 1)
}

func TestSnapshotExportAndImportLatest(t *testing.T) {
	src := newCLI(t, "")
	var idea core.Idea
	src.runJSON(&idea, "idea", "draft", "--title", "Archive me", "--description", "Round trip")

	noneYet := src.run("", "snapshot", "import")
	assert.Equal(t, exitDomainError, noneYet.code)

	var info struct {
		Key string `json:"key"`
	}
	src.runJSON(&info, "snapshot", "export")
	assert.True(t, strings.HasPrefix(info.Key, "snapshots/"), info.Key)

	// A second workspace reading the same archive directory.
	dst := newCLI(t, "")
	dst.config = writeConfig(t, dst.dir, filepath.Join(src.dir, "archive"))

	var report importReport
	dst.runJSON(&report, "snapshot", "import")
	assert.Equal(t, info.Key, report.Key)
	assert.Equal(t, 1, report.Ideas)

	var restored core.Idea
	dst.runJSON(&restored, "idea", "get", "1")
	assert.Equal(t, "Archive me", restored.Title)

	var listed []struct {
		Key string `json:"key"`
	}
	dst.runJSON(&listed, "snapshot", "list")
	require.Len(t, listed, 1)
	assert.Equal(t, info.Key, listed[0].Key)
}

func writeConfig(t *testing.T, dir, archiveRoot string) string {
	t.Helper()
	path := filepath.Join(dir, "restore.yaml")
	yaml := fmt.Sprintf("storage:\n  sqlite_path: %s\narchive:\n  fs_root: %s\nlog:\n  level: error\n",
		filepath.Join(dir, "restored.db"), archiveRoot)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestStatusCountsPerStage(t *testing.T) {
	c := newCLI(t, "")
	var idea core.Idea
	c.runJSON(&idea, "idea", "draft", "--title", "One", "--description", "first")
	c.runJSON(&idea, "idea", "create", "--title", "Two", "--description", "second")

	var report statusReport
	c.runJSON(&report, "status")
	assert.Equal(t, "sqlite", report.Storage)
	assert.Equal(t, 1, report.Ideas["draft"])
	assert.Equal(t, 1, report.Ideas["proposed"])
	assert.Equal(t, 0, report.Ideas["reflection"])
	assert.Equal(t, 0, report.Experiments["planned"])
	assert.Len(t, report.Experiments, 3)

	table := c.run("", "status")
	require.Equal(t, exitSuccess, table.code)
	assert.Contains(t, table.stdout, "ideas draft")
	assert.Contains(t, table.stdout, "experiments in-progress")
}

func TestUsageErrorsExitOne(t *testing.T) {
	c := newCLI(t, "")
	cases := [][]string{
		{"idea", "get", "abc"},
		{"idea", "publish", "1"},
		{"idea", "draft", "--title", "no description"},
		{"experiment", "update", "1", "--idea", "2", "--unlink-idea", "--version", "1"},
		{"bogus"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			res := c.run("", args...)
			assert.Equal(t, exitDomainError, res.code, res.stderr)
			assert.Contains(t, res.stderr, "error:")
		})
	}
	malformed := c.run("{", "reflection", "create")
	assert.Equal(t, exitDomainError, malformed.code)
	assert.Contains(t, malformed.stderr, "decode reflection")
}

func TestInfrastructureErrorsExitTwo(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	path := filepath.Join(dir, "learnloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("storage:\n  sqlite_path: %s\n", filepath.Join(blocker, "loop.db"))), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", path, "idea", "list"}, nil, &stdout, &stderr)
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, stderr.String(), "open sqlite store")

	badConfig := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badConfig, []byte("storage:\n  driver: mongo\n"), 0o600))
	code = run(context.Background(), []string{"--config", badConfig, "idea", "list"}, nil, &stdout, &stderr)
	assert.Equal(t, exitSysError, code)
}

func TestMetricsTextfileWrittenOnExit(t *testing.T) {
	dir := t.TempDir()
	textfile := filepath.Join(dir, "learnloop.prom")
	c := newCLI(t, fmt.Sprintf("metrics:\n  namespace: loop\n  textfile: %s\n", textfile))
	var idea core.Idea
	c.runJSON(&idea, "idea", "draft", "--title", "Measure", "--description", "me")

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `loop_service_operations_total{operation="create_draft",status="success"} 1`)
}
