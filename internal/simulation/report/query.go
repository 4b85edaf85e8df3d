package report

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Query extracts a value from a JSON report. path is either a gjson path
// ("summary.failures", "thresholds.#(passed==false)#.expression") or a
// simple JSONPath ("$.timeSeries[0].intervalTasks").
func Query(data []byte, path string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty report")
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("report is not valid JSON")
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty query path")
	}

	result := gjson.GetBytes(data, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// toGjsonPath converts the JSONPath subset "$.a.b[0]" to "a.b.0". Paths
// without a leading $ are passed through as gjson syntax.
func toGjsonPath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "$") {
		return path
	}

	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	for _, quote := range []string{"'", "\""} {
		path = strings.ReplaceAll(path, "["+quote, ".")
		path = strings.ReplaceAll(path, quote+"]", "")
	}
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	return strings.TrimPrefix(path, ".")
}
