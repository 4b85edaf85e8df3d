package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancast26/storesim/internal/simulation/catalog"
)

func TestCatalogCommand_JSON(t *testing.T) {
	stdout, _, err := execRoot(t, "catalog", "--seed", "7", "--json")
	require.NoError(t, err)

	var products []catalog.Product
	require.NoError(t, json.Unmarshal([]byte(stdout), &products))
	require.Len(t, products, 10)
	for _, p := range products {
		assert.NotEmpty(t, p.ID)
		assert.GreaterOrEqual(t, p.Price, catalog.MinPrice)
		assert.LessOrEqual(t, p.Price, catalog.MaxPrice)
	}

	again, _, err := execRoot(t, "catalog", "--seed", "7", "--json")
	require.NoError(t, err)

	var second []catalog.Product
	require.NoError(t, json.Unmarshal([]byte(again), &second))
	for i := range products {
		assert.Equal(t, products[i].Name, second[i].Name)
		assert.Equal(t, products[i].Price, second[i].Price, "same seed gives the same prices")
	}
}

func TestCatalogCommand_Table(t *testing.T) {
	stdout, _, err := execRoot(t, "catalog", "--no-color")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	assert.Len(t, lines, 11)
	assert.Contains(t, lines[0], "Price (COP)")
}

func TestValidateCommand(t *testing.T) {
	valid := writeConfig(t, "valid.yaml", fastUsersYAML)
	validJSON := writeConfig(t, "valid.json", `{"workload": "orders", "run": {"tasks": 10, "latency": {"min": 5, "max": "20ms"}}}`)
	schemaBad := writeConfig(t, "schema.yaml", `
workload: carts
run:
  concurrency: 0
  retries: 3
`)
	semanticBad := writeConfig(t, "semantic.yaml", `
run:
  latency:
    min: 300ms
    max: 100ms
`)

	t.Run("valid files", func(t *testing.T) {
		stdout, _, err := execRoot(t, "validate", valid, validJSON)
		require.NoError(t, err)
		assert.Contains(t, stdout, "✓ "+valid)
		assert.Contains(t, stdout, "✓ "+validJSON)
	})

	t.Run("schema errors", func(t *testing.T) {
		stdout, _, err := execRoot(t, "validate", valid, schemaBad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, stdout, "✗ "+schemaBad)
		assert.Contains(t, stdout, "workload")
		assert.Contains(t, stdout, "run.concurrency")
	})

	t.Run("semantic errors", func(t *testing.T) {
		stdout, _, err := execRoot(t, "validate", semanticBad)
		require.Error(t, err)
		assert.Contains(t, stdout, "run.latency")
	})

	t.Run("missing file", func(t *testing.T) {
		stdout, _, err := execRoot(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, stdout, "failed to read config file")
	})

	t.Run("no files", func(t *testing.T) {
		_, _, err := execRoot(t, "validate")
		assert.Error(t, err)
	})

	t.Run("schema", func(t *testing.T) {
		stdout, _, err := execRoot(t, "validate", "--schema")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"$schema"`)
	})
}

func TestInspectCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	_, _, err := execRoot(t, "run",
		"--name", "inspect-me", "--workload", "users", "-n", "12", "-C", "4",
		"--latency-min", "0", "--latency-max", "0",
		"--cpu-iterations", "1", "--failure-rate", "0",
		"-q", "-o", path)
	require.NoError(t, err)

	t.Run("single path", func(t *testing.T) {
		stdout, _, err := execRoot(t, "inspect", path, "--path", "summary.successes")
		require.NoError(t, err)
		assert.Equal(t, "12\n", stdout)
	})

	t.Run("several paths", func(t *testing.T) {
		stdout, _, err := execRoot(t, "inspect", path, "-p", "$.name", "-p", "config.concurrency")
		require.NoError(t, err)
		assert.Contains(t, stdout, "$.name: inspect-me")
		assert.Contains(t, stdout, "config.concurrency: 4")
	})

	t.Run("missing path", func(t *testing.T) {
		_, _, err := execRoot(t, "inspect", path, "-p", "summary.nothing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path not found")
	})

	t.Run("no path flag", func(t *testing.T) {
		_, _, err := execRoot(t, "inspect", path)
		assert.Error(t, err)
	})

	t.Run("missing report", func(t *testing.T) {
		_, _, err := execRoot(t, "inspect", filepath.Join(t.TempDir(), "none.json"), "-p", "name")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read report")
	})
}
