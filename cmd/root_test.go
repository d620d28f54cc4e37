package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
	"github.com/xkilldash9x/domscout-cli/internal/config"
	"github.com/xkilldash9x/domscout-cli/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const fixturePage = `<!DOCTYPE html>
<html>
<body>
	<form id="login" action="/session" method="post">
		<input id="user" type="text" name="user" placeholder="Username">
		<input id="remember" type="checkbox" name="remember">
		<button id="go" type="submit">Sign in</button>
	</form>
	<details><summary id="more">More</summary><a href="https://other.example/" id="away">away</a></details>
</body>
</html>`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(fixturePage), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "domscout-cli "+Version)
}

func TestExploreCommandRequiresTarget(t *testing.T) {
	_, err := execute(t, "explore")
	require.Error(t, err)
}

func TestExploreCommandEndToEnd(t *testing.T) {
	page := writeFixture(t)
	outPath := filepath.Join(t.TempDir(), "report.json")

	_, err := execute(t, "explore", page,
		"--output", outPath,
		"--settle", "1ms",
		"--max-iterations", "50",
	)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var rep schemas.Report
	require.NoError(t, json.Unmarshal(data, &rep))

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 50, rep.Config.MaxIterations, "flag overrides the default ceiling")
	assert.Equal(t, int64(1), rep.Config.SettleIntervalMs)
	assert.False(t, rep.CeilingHit)
	assert.Greater(t, rep.Stats.TotalElements, 5)
	assert.GreaterOrEqual(t, rep.TriggerCount, 4, "user, remember, go, more; the foreign anchor still counts as a trigger")
	assert.Empty(t, rep.Errors)

	// Interacted state is reverted in the tree, and the report carries the
	// original values.
	for _, el := range rep.Elements {
		if el.ID == "remember" {
			assert.False(t, el.Checked)
		}
	}
}

func TestExploreCommandStdin(t *testing.T) {
	// "-" reads the page from stdin.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStdin := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = oldStdin })

	go func() {
		_, _ = w.WriteString(`<button id="only">x</button>`)
		_ = w.Close()
	}()

	outPath := filepath.Join(t.TempDir(), "report.json")
	_, err = execute(t, "explore", "-", "--output", outPath, "--settle", "1ms")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var rep schemas.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 1, rep.TriggerCount)
}

func TestExploreCommandMultipleTargetsNeedPlaceholder(t *testing.T) {
	page := writeFixture(t)
	_, err := execute(t, "explore", page, page, "--output", filepath.Join(t.TempDir(), "report.json"))
	require.Error(t, err)
}

func TestExploreCommandMultipleTargets(t *testing.T) {
	page := writeFixture(t)
	dir := t.TempDir()

	_, err := execute(t, "explore", page, page,
		"--output", filepath.Join(dir, "report-%d.json"),
		"--settle", "1ms",
	)
	require.NoError(t, err)

	for _, name := range []string{"report-0.json", "report-1.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestExploreCommandMultipleTargetsStdout(t *testing.T) {
	// Parallel runs share stdout; each report must arrive as one whole
	// document. Pin console logging to the real stdout first so log lines
	// cannot land in the captured report stream.
	observability.InitializeLogger(config.LoggerConfig{Level: "error", Format: "console", ServiceName: "domscout-cli"})

	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = oldStdout })

	captured := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(r)
		captured <- data
	}()

	page := writeFixture(t)
	_, err = execute(t, "explore", page, page, page, "--settle", "1ms")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	os.Stdout = oldStdout

	dec := json.NewDecoder(bytes.NewReader(<-captured))
	for i := range 3 {
		var rep schemas.Report
		require.NoError(t, dec.Decode(&rep), "report %d", i)
		assert.GreaterOrEqual(t, rep.TriggerCount, 4, "report %d", i)
	}
	assert.False(t, dec.More())
}

func TestExploreCommandRejectsInvalidConfig(t *testing.T) {
	page := writeFixture(t)
	_, err := execute(t, "explore", page, "--max-iterations", "-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestRootCommandConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("explorer:\n  max_iterations: 7\n"), 0o644))

	page := writeFixture(t)
	outPath := filepath.Join(t.TempDir(), "report.json")

	_, err := execute(t, "explore", page, "--config", cfgPath, "--output", outPath, "--settle", "1ms")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var rep schemas.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 7, rep.Config.MaxIterations)
}
