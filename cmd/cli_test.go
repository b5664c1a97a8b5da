package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edalens/internal/table"
)

const peopleCSV = "age,income,city\n21,1000,Paris\n22,1200,Rome\n23,900,Paris\n35,,Oslo\n41,3000,Rome\n90,2500,Paris\n"

// runCmd executes the root command with fresh flag state and captures output.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	for _, c := range []*cobra.Command{rootCmd, analyzeCmd, analyzeBatchCmd, configCmd, configShowCmd, configSetCmd, modelsCmd} {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
	cfg = nil
	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errb.String(), err
}

func sandbox(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EDALENS_API_KEY", "")
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAnalyzeNoInsightsJSON(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "people.csv"), peopleCSV)

	out, _, err := runCmd(t, "analyze", csv, "--no-insights", "--format", "json", "--top-n", "1")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "skipped", doc["insight_source"])
	ds := doc["dataset"].(map[string]any)
	assert.Equal(t, float64(6), ds["num_rows"])
	corr := doc["analytics"].(map[string]any)["correlations"].(map[string]any)
	assert.Len(t, corr["top_positive_correlations"], 1)
}

func TestAnalyzeJSONWithInfiniteValues(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "inf.csv"), "a,b\n1,10\n2,20\ninf,30\n4,+Inf\n5,50\n6,Infinity\n")

	out, _, err := runCmd(t, "analyze", csv, "--no-insights", "-f", "json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	cols := doc["columns"].(map[string]any)
	a := cols["a"].(map[string]any)
	assert.Equal(t, "float", a["dtype"])
	assert.Equal(t, float64(5), a["non_null_count"])
	assert.Equal(t, 3.6, a["mean"])
}

func TestAnalyzePlanToFile(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "people.csv"), peopleCSV)
	plan := writeFile(t, filepath.Join(home, "plan.yaml"), "plots:\n  - type: hist\n    columns: [age]\n  - type: scatter\n    columns: [age, city]\n")
	dest := filepath.Join(home, "out", "people.md")

	out, _, err := runCmd(t, "analyze", csv, "--plan", plan, "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote markdown report")
	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Distribution of age")
	assert.Contains(t, string(body), "1 of 2 requested plots rendered; 1 rejected.")
}

func TestAnalyzeWritesPlotImages(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "people.csv"), peopleCSV)
	plan := writeFile(t, filepath.Join(home, "plan.json"), `[{"type":"hist","columns":["age"]},{"type":"bar","columns":["city"]}]`)
	plots := filepath.Join(home, "plots")

	out, _, err := runCmd(t, "analyze", csv, "--plan", plan, "--plots-dir", plots, "--plot-format", "svg")
	require.NoError(t, err)
	assert.Contains(t, out, "2 plots rendered.")
	files, err := filepath.Glob(filepath.Join(plots, "*.svg"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, out, "](")

	_, _, err = runCmd(t, "analyze", csv, "--plan", plan, "--plots-dir", plots, "--plot-format", "gif")
	assert.ErrorContains(t, err, "unsupported --plot-format")
}

func fakeOllama(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": content},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeWithLocalRuntime(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "people.csv"), peopleCSV)
	srv := fakeOllama(t, "```json\n"+`{"dataset_summary":"People by city.","key_insights":["Paris leads"],"plots":[{"type":"bar","columns":["city"]},{"type":"pie","columns":["city"]}]}`+"\n```")

	out, _, err := runCmd(t, "analyze", csv, "--provider", "ollama", "--ollama-host", srv.URL, "--model", "llama3.1:8b")
	require.NoError(t, err)
	assert.Contains(t, out, "People by city.")
	assert.Contains(t, out, "- Paris leads")
	assert.Contains(t, out, "Top Categories in city (bar: city)")
}

func TestAnalyzeDegradesOnGarbage(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "people.csv"), peopleCSV)
	srv := fakeOllama(t, "sorry, no json today")

	out, errOut, err := runCmd(t, "analyze", csv, "--provider", "ollama", "--ollama-host", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, errOut, "⚠ Insights unavailable")
	assert.Contains(t, out, "[NUMERIC ANALYSIS]")
	assert.Contains(t, out, "No plots: insights unavailable.")
}

func TestAnalyzeRejectsTinyDataset(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "tiny.csv"), "a,b\n1,2\n")
	_, _, err := runCmd(t, "analyze", csv, "--no-insights")
	require.Error(t, err)
	assert.True(t, errors.Is(err, table.ErrPrecondition), "got %v", err)
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	home := sandbox(t)
	csv := writeFile(t, filepath.Join(home, "people.csv"), peopleCSV)
	_, _, err := runCmd(t, "analyze", csv, "--no-insights", "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported --format")
}

func TestAnalyzeBatchOutputDirCollisions(t *testing.T) {
	home := sandbox(t)
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), peopleCSV)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), peopleCSV)
	outDir := filepath.Join(home, "reports")

	_, _, err := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"),
		"--no-insights", "--output-dir", outDir, "--jobs", "2", "--quiet")
	require.NoError(t, err)
	for _, name := range []string{"metrics.md", "metrics__2.md"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(body), "[DATASET SUMMARY]")
	}
}

func TestAnalyzeBatchStdoutKeepsOrder(t *testing.T) {
	home := sandbox(t)
	a := writeFile(t, filepath.Join(home, "a.csv"), peopleCSV)
	b := writeFile(t, filepath.Join(home, "b.csv"), peopleCSV)

	out, errOut, err := runCmd(t, "analyze-batch", b, a, "--no-insights", "--jobs", "4")
	require.NoError(t, err)
	assert.Contains(t, errOut, "[1/2] Processing a.csv...")
	ia, ib := strings.Index(out, "File: "+a), strings.Index(out, "File: "+b)
	require.True(t, ia >= 0 && ib >= 0)
	assert.Less(t, ia, ib)

	_, _, err = runCmd(t, "analyze-batch", filepath.Join(home, "none*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestConfigSetAndShow(t *testing.T) {
	home := sandbox(t)
	path := filepath.Join(home, "cfg.yaml")

	_, _, err := runCmd(t, "--config", path, "config", "set", "top_correlations", "7")
	require.NoError(t, err)
	_, _, err = runCmd(t, "--config", path, "config", "set", "api_key", "sk-secret-value")
	require.NoError(t, err)
	_, _, err = runCmd(t, "--config", path, "config", "set", "default_provider", "local")
	require.NoError(t, err)

	out, _, err := runCmd(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "top_correlations: 7")
	assert.Contains(t, out, "default_provider: ollama")
	assert.Contains(t, out, "sk-****lue")
	assert.NotContains(t, out, "sk-secret-value")

	_, _, err = runCmd(t, "--config", path, "config", "set", "default_provider", "bard")
	assert.Error(t, err)
}

func TestModelsList(t *testing.T) {
	sandbox(t)
	out, _, err := runCmd(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "google/gemini-2.5-flash")
	assert.Contains(t, out, "free")
}
