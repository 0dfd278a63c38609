package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
	"github.com/Makepad-fr/tada/internal/server"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

// env isolates a test from the user's home, config and environment and
// points local storage at a fresh file.
type env struct {
	dir   string
	stdin string
}

func newEnv(t *testing.T, driver string) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{"TADA_SERVER_URL", "TADA_TOKEN", "TADA_THEME", "TADA_LOG_LEVEL", "TADA_ADDR", "TADA_SERVER_TOKEN"} {
		t.Setenv(k, "")
	}
	t.Setenv("TADA_STORAGE_DRIVER", driver)
	name := "todos.db"
	if driver == config.DriverJSON {
		name = "todos.json"
	}
	t.Setenv("TADA_DB", filepath.Join(dir, name))
	return &env{dir: dir}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(e.stdin))
	base := []string{"--config", filepath.Join(e.dir, "config.yaml"), "--theme", "mono"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "todo %s", strings.Join(args, " "))
	return out
}

func (e *env) list(t *testing.T) []model.Item {
	t.Helper()
	var items []model.Item
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "ls", "--json")), &items))
	return items
}

func titles(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "todo", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"add"}, {"ls"}, {"edit"}, {"rm"}, {"mv"}, {"tui"}, {"serve"}, {"repair"},
		{"auth", "login"}, {"auth", "logout"}, {"auth", "status"}, {"auth", "whoami"},
		{"config", "init"}, {"config", "path"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	for _, name := range []string{"config", "remote", "theme"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestItemWorkflow(t *testing.T) {
	for _, driver := range []string{config.DriverJSON, config.DriverSQLite, config.DriverSQLitePure} {
		t.Run(driver, func(t *testing.T) {
			e := newEnv(t, driver)

			out := e.mustRun(t, "add", "Buy", "milk")
			assert.Contains(t, out, `added "Buy milk" at 1`)
			e.mustRun(t, "add", "Write report", "-d", "quarterly numbers")
			e.mustRun(t, "add", "Call mom")

			items := e.list(t)
			assert.Equal(t, []string{"Buy milk", "Write report", "Call mom"}, titles(items))
			assert.Equal(t, "quarterly numbers", items[1].Description)

			out = e.mustRun(t, "mv", "3", "1")
			assert.Contains(t, out, "1. - Call mom")
			assert.Contains(t, out, "2. - Buy milk")

			e.mustRun(t, "rm", "2")
			e.mustRun(t, "edit", items[1].ID, "-t", "Write the report")

			items = e.list(t)
			assert.Equal(t, []string{"Call mom", "Write the report"}, titles(items))
			assert.NoError(t, order.Check(items))

			out = e.mustRun(t, "ls")
			assert.Contains(t, out, "Todos  Total 2")
			assert.Contains(t, out, "     quarterly numbers")
		})
	}
}

func TestExitCodes(t *testing.T) {
	e := newEnv(t, config.DriverJSON)
	e.mustRun(t, "add", "only")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "index out of range", args: []string{"rm", "9"}, code: ExitUsage},
		{name: "unknown id", args: []string{"rm", "01ARZ3NDEKTSV4RRFFQ69G5FAV"}, code: ExitUsage},
		{name: "position not a number", args: []string{"mv", "1", "top"}, code: ExitUsage},
		{name: "position out of range", args: []string{"mv", "1", "2"}, code: ExitUsage},
		{name: "position zero", args: []string{"mv", "1", "0"}, code: ExitUsage},
		{name: "blank title", args: []string{"add", "  "}, code: ExitUsage},
		{name: "edit without changes", args: []string{"edit", "1"}, code: ExitUsage},
		{name: "missing args", args: []string{"mv", "1"}, code: ExitUsage},
		{name: "unknown command", args: []string{"frobnicate"}, code: ExitUsage},
		{name: "bad remote", args: []string{"--remote", "localhost:1", "ls"}, code: ExitUsage},
		{name: "unreachable remote", args: []string{"--remote", "http://127.0.0.1:1", "ls"}, code: ExitFailure},
		{name: "unreachable remote tui", args: []string{"--remote", "http://127.0.0.1:1", "tui"}, code: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err), "%v", err)
		})
	}

	assert.Equal(t, []string{"only"}, titles(e.list(t)))
}

func TestOutOfRangeIndexHint(t *testing.T) {
	e := newEnv(t, config.DriverJSON)
	_, err := e.run(t, "rm", "1")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "index out of range: have 0, got 1", exitErr.Message)
	assert.NotEmpty(t, exitErr.Hint)
}

func TestMoveRejectsPositionBelowOne(t *testing.T) {
	e := newEnv(t, config.DriverJSON)
	e.mustRun(t, "add", "A")
	e.mustRun(t, "add", "B")

	for _, pos := range []string{"0", "-3"} {
		_, err := e.run(t, "mv", "2", pos)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, ExitUsage, exitErr.Code)
		assert.Contains(t, exitErr.Message, "position must be 1 or more")
		assert.NotContains(t, exitErr.Error(), "negative")
	}
	assert.Equal(t, []string{"A", "B"}, titles(e.list(t)))
}

func TestConfigInit(t *testing.T) {
	e := newEnv(t, config.DriverJSON)
	path := filepath.Join(e.dir, "config.yaml")

	out := e.mustRun(t, "config", "path")
	assert.Equal(t, path+"\n", out)

	out = e.mustRun(t, "config", "init")
	assert.Contains(t, out, "wrote "+path)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Server.Addr, cfg.Server.Addr)

	_, err = e.run(t, "config", "init")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUsage, exitErr.Code)
	assert.Contains(t, exitErr.Hint, "--force")

	e.mustRun(t, "config", "init", "--force")
}

func TestFilter(t *testing.T) {
	e := newEnv(t, config.DriverJSON)
	for _, title := range []string{"Buy milk", "Write report", "Buy bread"} {
		e.mustRun(t, "add", title)
	}

	var items []model.Item
	out := e.mustRun(t, "ls", "--filter", "buy", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Equal(t, []string{"Buy milk", "Buy bread"}, titles(items))

	out = e.mustRun(t, "ls", "-f", "report")
	assert.Contains(t, out, "2. - Write report")
	assert.NotContains(t, out, "milk")
}

func TestFilterRanksCloserMatchesFirst(t *testing.T) {
	items := []model.Item{
		{ID: "a", Title: "Catalog the attic"},
		{ID: "b", Title: "Cat food"},
		{ID: "c", Title: "Dog food"},
	}
	got := filterItems(items, "cat")
	assert.Equal(t, []string{"Cat food", "Catalog the attic"}, titles(got))
}

func TestRemote(t *testing.T) {
	e := newEnv(t, config.DriverJSON)

	store, err := jsonstore.Open(filepath.Join(t.TempDir(), "remote.json"))
	require.NoError(t, err)
	remote := order.New(store)
	cfg := config.DefaultConfig().Server
	cfg.Token = "s3cret"
	srv, err := server.New(remote, cfg, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	_, err = e.run(t, "--remote", ts.URL, "add", "denied")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	e.mustRun(t, "auth", "login", "--token", "s3cret")
	e.mustRun(t, "--remote", ts.URL, "add", "first")
	e.mustRun(t, "--remote", ts.URL, "add", "second")
	e.mustRun(t, "--remote", ts.URL, "mv", "2", "1")

	items, err := remote.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, titles(items))

	assert.Empty(t, e.list(t), "local storage must stay untouched")
}

func TestRepair(t *testing.T) {
	e := newEnv(t, config.DriverJSON)
	raw := `[
  {"id": "01A", "title": "A", "description": "", "position": 2, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"},
  {"id": "01B", "title": "B", "description": "", "position": 5, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "todos.json"), []byte(raw), 0o644))

	_, err := e.run(t, "add", "C")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := e.mustRun(t, "repair")
	assert.Contains(t, out, "repaired 2 of 2 positions")

	out = e.mustRun(t, "repair")
	assert.Contains(t, out, "already dense")

	e.mustRun(t, "add", "C")
	assert.Equal(t, []string{"A", "B", "C"}, titles(e.list(t)))
}

func TestAuthCommands(t *testing.T) {
	e := newEnv(t, config.DriverJSON)

	out := e.mustRun(t, "auth", "status")
	assert.Contains(t, out, "not logged in")

	_, err := e.run(t, "auth", "whoami")
	assert.Equal(t, ExitUsage, GetExitCode(err))

	e.stdin = "opaque-token\n"
	out = e.mustRun(t, "auth", "login")
	assert.Contains(t, out, "logged in")
	e.stdin = ""

	out = e.mustRun(t, "auth", "status")
	assert.Contains(t, out, "source: file")
	assert.Contains(t, out, "expires: (unknown)")

	out = e.mustRun(t, "auth", "whoami")
	assert.Contains(t, out, "Opaque token")

	out = e.mustRun(t, "auth", "logout")
	assert.Contains(t, out, "logged out")
	out = e.mustRun(t, "auth", "status")
	assert.Contains(t, out, "not logged in")

	_, err = e.run(t, "auth", "login")
	assert.Equal(t, ExitUsage, GetExitCode(err))
}

func TestConfigErrorsAreUsageErrors(t *testing.T) {
	e := newEnv(t, "mysql")
	_, err := e.run(t, "ls")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
}
