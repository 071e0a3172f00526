// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/internal/config"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/htmldriver"
	"github.com/xkilldash9x/scalpel-heal/internal/observability"
)

const testConfig = `
logger:
  level: fatal
  format: json
locator:
  timeout: 1s
  probe_timeout: 50ms
`

const testCatalog = `
elements:
  - purpose: Save Button
    kind: button
    role: button
    text: ["Save"]
    primary: "#save"
  - purpose: Continue Button
    kind: button
    role: button
    text: ["Continue"]
    primary: "#continue-btn"
`

const failingEntry = `
  - purpose: Checkout Button
    kind: button
    text: ["Checkout"]
    primary: "#checkout"
`

const testPage = `<html><body>
<button id="save">Save</button>
<form><button id="next" aria-label="Continue to payment">Proceed</button></form>
</body></html>`

type fixture struct {
	dir     string
	config  string
	catalog string
	html    string
}

func newFixture(t *testing.T, catalog string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		config:  filepath.Join(dir, "scalpel-heal.yaml"),
		catalog: filepath.Join(dir, "catalog.yaml"),
		html:    filepath.Join(dir, "page.html"),
	}
	require.NoError(t, os.WriteFile(f.config, []byte(testConfig), 0o600))
	require.NoError(t, os.WriteFile(f.catalog, []byte(catalog), 0o600))
	require.NoError(t, os.WriteFile(f.html, []byte(testPage), 0o600))
	return f
}

// execute runs a fresh command tree and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "scalpel-heal version "+Version+"\n", out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "scalpel-heal version "+Version)
}

func TestStrategies(t *testing.T) {
	f := newFixture(t, testCatalog)
	out, err := execute(t, "strategies", "--config", f.config)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, " 1. role-with-text", lines[0])
	assert.Equal(t, "12. structural-text", lines[11])
}

func TestCheck_Snapshot(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, testCatalog+failingEntry)

	out, err := execute(t, "check", "--config", f.config, "--catalog", f.catalog, "--html", f.html, "--parallel", "3")
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "1 of 3")

	assert.Contains(t, out, `[primary] Save Button: button#save "Save"`)
	assert.Contains(t, out, "[healed]  Continue Button via role-with-text: button#next")
	assert.Contains(t, out, `[failed]  Checkout Button: could not resolve "Checkout Button"`)
	assert.Contains(t, out, "Total healed: 1")

	// Results keep catalog order regardless of parallelism.
	assert.Less(t, strings.Index(out, "Save Button"), strings.Index(out, "Continue Button"))
	assert.Less(t, strings.Index(out, "Continue Button"), strings.Index(out, "Checkout Button"))
}

func TestCheck_NoHeal(t *testing.T) {
	f := newFixture(t, testCatalog)
	out, err := execute(t, "check", "--config", f.config, "--catalog", f.catalog, "--html", f.html, "--no-heal")
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, out, "[failed]  Continue Button")
	assert.Contains(t, out, "healing is disabled")
	assert.Contains(t, out, "No elements required healing.")
}

func TestCheck_JSON(t *testing.T) {
	f := newFixture(t, testCatalog)
	out, err := execute(t, "check", "--config", f.config, "--catalog", f.catalog, "--html", f.html, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Results []elementResult `json:"results"`
		Report  struct {
			Summary struct {
				TotalHealed    int            `json:"total_healed"`
				StrategiesUsed map[string]int `json:"strategies_used"`
			} `json:"summary"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 2)
	assert.Equal(t, statusPrimary, doc.Results[0].Status)
	assert.Equal(t, statusHealed, doc.Results[1].Status)
	assert.Equal(t, "role-with-text", doc.Results[1].Strategy)
	assert.Equal(t, 1, doc.Report.Summary.TotalHealed)
	assert.Equal(t, map[string]int{"role-with-text": 1}, doc.Report.Summary.StrategiesUsed)
}

func TestCheck_ReportFileAndMetrics(t *testing.T) {
	f := newFixture(t, testCatalog)
	report := filepath.Join(f.dir, "report.txt")
	metrics := filepath.Join(f.dir, "metrics.prom")

	out, err := execute(t, "check", "--config", f.config, "--catalog", f.catalog, "--html", f.html,
		"--output", report, "--metrics-file", metrics)
	require.NoError(t, err)
	assert.NotContains(t, out, "Healing report")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total healed: 1")

	data, err = os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `scalpel_heal_resolutions_total{result="healed"} 1`)
	assert.Contains(t, string(data), `scalpel_heal_resolutions_total{result="primary"} 1`)
	assert.Contains(t, string(data), `scalpel_heal_healing_events_total{kind="button",strategy="role-with-text"} 1`)
}

// navigablePage adapts a snapshot page to the live-page contract.
type navigablePage struct {
	*htmldriver.Page
	visited []string
}

func (p *navigablePage) Navigate(ctx context.Context, url string) error {
	p.visited = append(p.visited, url)
	return nil
}

func TestCheck_Live(t *testing.T) {
	f := newFixture(t, testCatalog)
	page := &navigablePage{Page: htmldriver.MustFromString(testPage)}
	var driverName string
	openLivePage = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (livePage, func(), error) {
		driverName = cfg.Browser.Driver
		return page, func() {}, nil
	}
	t.Cleanup(func() { openLivePage = openBrowser })

	out, err := execute(t, "check", "--config", f.config, "--catalog", f.catalog,
		"--url", "https://shop.example.com/checkout", "--driver", "playwright")
	require.NoError(t, err)
	assert.Equal(t, "playwright", driverName)
	assert.Equal(t, []string{"https://shop.example.com/checkout"}, page.visited)
	assert.Contains(t, out, "[healed]  Continue Button via role-with-text")
}

func TestCheck_Validation(t *testing.T) {
	f := newFixture(t, testCatalog)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"check", "--config", f.config, "--catalog", f.catalog}, "exactly one of --html or --url"},
		{"both sources", []string{"check", "--config", f.config, "--catalog", f.catalog, "--html", f.html, "--url", "http://x"}, "exactly one of --html or --url"},
		{"missing catalog", []string{"check", "--config", f.config, "--html", f.html}, `"catalog" not set`},
		{"bad format", []string{"check", "--config", f.config, "--catalog", f.catalog, "--html", f.html, "--format", "xml"}, "report.format"},
		{"catalog not found", []string{"check", "--config", f.config, "--catalog", filepath.Join(f.dir, "nope.yaml"), "--html", f.html}, "failed to open catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locator:\n  max_healing_attempts: 0\n"), 0o600))

	_, err := execute(t, "strategies", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locator.max_healing_attempts must be a positive integer")
}
