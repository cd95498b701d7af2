package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/strshort/pkg/config"
	"github.com/mchmarny/strshort/pkg/data"
	"github.com/mchmarny/strshort/pkg/shorten"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runApp executes the CLI with args in an isolated config dir and returns stdout.
func runApp(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)

	full := append([]string{appName, "--config", dir}, args...)
	err := app.Run(context.Background(), full)
	return out.String(), err
}

func TestRun_Single(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, dir, "", "run", "bcab")
	require.NoError(t, err)

	var res shorten.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "bcab", res.Input)
	assert.Equal(t, "b", res.Output)
	assert.Empty(t, res.Steps)
}

func TestRun_MultipleWithTrace(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, dir, "", "run", "--trace", "aba", "aa")
	require.NoError(t, err)

	var list []*shorten.Result
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Output)
	assert.Len(t, list[0].Steps, 2)
	assert.Equal(t, "aa", list[1].Output)
	assert.Empty(t, list[1].Steps)
}

func TestRun_Invalid(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, dir, "", "run", "aba", "zabce")
	require.Error(t, err)
	assert.ErrorIs(t, err, shorten.ErrInvalidInput)
	assert.Empty(t, out)

	db, err := data.GetDB(filepath.Join(dir, data.DataFileName))
	require.NoError(t, err)
	defer db.Close()

	list, err := data.ListRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "zabce", list[0].Input)
	assert.False(t, list[0].Valid)
}

func TestRun_NoArgs(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "", "run")
	assert.Error(t, err)
}

func TestRun_YAML(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "", "--format", "yaml", "run", "cab")
	require.NoError(t, err)
	assert.Contains(t, out, "output: bb")
}

func TestRun_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, dir, "", "run", "cab")
	require.NoError(t, err)
	_, err = runApp(t, dir, "", "run", "--no-record", "aba")
	require.NoError(t, err)

	out, err := runApp(t, dir, "", "history")
	require.NoError(t, err)

	var list []*data.Run
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "cab", list[0].Input)
	assert.Equal(t, "bb", list[0].Output)
	assert.Equal(t, 1, list[0].Steps)
	assert.Equal(t, data.SourceCLI, list[0].Source)
}

func TestBatch_Stdin(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, dir, "aba\n\n zabce \ncab\n", "batch", "--concurrency", "2")
	require.NoError(t, err)

	var res BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Invalid)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "b", res.Items[0].Output)
	assert.Equal(t, "zabce", res.Items[1].Input)
	assert.NotEmpty(t, res.Items[1].Error)
	assert.Equal(t, "bb", res.Items[2].Output)

	out, err = runApp(t, dir, "", "history", "stats")
	require.NoError(t, err)
	var state map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, int64(3), state["runs"])
	assert.Equal(t, int64(1), state["invalid"])
}

func TestHistoryClear(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, dir, "", "run", "cab", "aba")
	require.NoError(t, err)

	out, err := runApp(t, dir, "n\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	out, err = runApp(t, dir, "", "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, `"deleted": 2`)

	out, err = runApp(t, dir, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestTable_FromConfig(t *testing.T) {
	dir := t.TempDir()
	conf, err := config.ReadOrCreate(dir)
	require.NoError(t, err)
	conf.Table = shorten.DefaultTable().Map()
	conf.Table["ba"] = "a"
	require.NoError(t, config.Save(dir, conf))

	out, err := runApp(t, dir, "", "table")
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "a", m["ba"])
	assert.Equal(t, "c", m["ab"])

	out, err = runApp(t, dir, "", "run", "ab")
	require.NoError(t, err)
	assert.Contains(t, out, `"output": "a"`)
}

func TestApp_InvalidConfigTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Save(dir, &config.Config{
		LogLevel:    "info",
		Concurrency: 1,
		Table:       map[string]string{"ab": "c"},
	}))

	_, err := runApp(t, dir, "", "table")
	assert.Error(t, err)
}

func TestRun_Remote(t *testing.T) {
	ts := setupTestServer(t)
	dir := t.TempDir()

	out, err := runApp(t, dir, "", "run", "--remote", ts.URL, "--trace", "bcab")
	require.NoError(t, err)

	var res shorten.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "b", res.Output)
	assert.Len(t, res.Steps, 3)

	_, err = runApp(t, dir, "", "run", "--remote", ts.URL, "zabce")
	assert.ErrorIs(t, err, shorten.ErrInvalidInput)

	_, err = os.Stat(filepath.Join(dir, data.DataFileName))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// local history is untouched
	out, err = runApp(t, dir, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestBatch_Remote(t *testing.T) {
	ts := setupTestServer(t)
	dir := t.TempDir()

	out, err := runApp(t, dir, "aba\nx\ncab\n", "batch", "--remote", ts.URL)
	require.NoError(t, err)

	var res BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Invalid)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "b", res.Items[0].Output)
	assert.Equal(t, "bb", res.Items[2].Output)

	_, err = os.Stat(filepath.Join(dir, data.DataFileName))
	assert.ErrorIs(t, err, os.ErrNotExist)

	resp, err := http.Get(ts.URL + "/history/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, int64(3), state["runs"])
}

func TestBatch_RemoteUnreachable(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "aba\n", "batch", "--remote", "ftp://nowhere")
	assert.Error(t, err)
}

func TestTable_Remote(t *testing.T) {
	ts := setupTestServer(t)
	dir := t.TempDir()

	out, err := runApp(t, dir, "", "table", "--remote", ts.URL)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, shorten.DefaultTable().Map(), m)
}

func TestTable_DoesNotCreateDatabase(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, dir, "", "table")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, data.DataFileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
