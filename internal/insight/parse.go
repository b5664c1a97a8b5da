// Package insight builds the profile prompt for an LLM runtime and turns its
// free-form reply into structured insights and an untrusted plot plan.
package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/edalens/internal/plot"
)

// ErrNoJSON is returned when a reply holds no decodable JSON object.
var ErrNoJSON = errors.New("response did not contain valid JSON")

// FallbackSummary is the dataset summary of a degraded result.
const FallbackSummary = "Insights could not be generated."

// Insights is the structured reply of the insight generator.
type Insights struct {
	DatasetSummary    string         `json:"dataset_summary" yaml:"dataset_summary"`
	DataQualityIssues []string       `json:"data_quality_issues" yaml:"data_quality_issues"`
	Plots             []plot.Request `json:"plots" yaml:"plots"`
	KeyInsights       []string       `json:"key_insights" yaml:"key_insights"`
	MLSuggestions     []string       `json:"ml_suggestions" yaml:"ml_suggestions"`
	// Degraded marks a Fallback result.
	Degraded bool `json:"-" yaml:"-"`
}

// Fallback is the result used whenever generation or parsing fails:
// statistics stay usable and the plot plan is empty.
func Fallback(err error) Insights {
	issues := []string{}
	if err != nil {
		issues = append(issues, err.Error())
	}
	return Insights{
		DatasetSummary:    FallbackSummary,
		DataQualityIssues: issues,
		Plots:             []plot.Request{},
		KeyInsights:       []string{},
		MLSuggestions:     []string{},
		Degraded:          true,
	}
}

var (
	fenceRe  = regexp.MustCompile("```(?:json)?")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// Parse extracts Insights from free-form text. Code fences are stripped,
// then the whole text is decoded, then the outermost {...} span.
func Parse(text string) (Insights, error) {
	text = strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
	if obj, ok := decodeObject(text); ok {
		return fromTree(obj), nil
	}
	if m := objectRe.FindString(text); m != "" {
		if obj, ok := decodeObject(m); ok {
			return fromTree(obj), nil
		}
	}
	return Insights{}, ErrNoJSON
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ParsePlan reads a plot plan file: either a list of {type, columns}
// entries or an object with a "plots" list. YAML is used for .yaml/.yml
// names and JSON otherwise.
func ParsePlan(name string, data []byte) ([]plot.Request, error) {
	var tree any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse plan %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse plan %s: %w", name, err)
		}
	}
	if obj, ok := tree.(map[string]any); ok {
		tree = obj["plots"]
	}
	list, ok := tree.([]any)
	if !ok {
		return nil, fmt.Errorf("parse plan %s: expected a list of plots", name)
	}
	return requests(list), nil
}

func fromTree(obj map[string]any) Insights {
	in := Insights{
		DataQualityIssues: strs(obj["data_quality_issues"]),
		KeyInsights:       strs(obj["key_insights"]),
		MLSuggestions:     strs(obj["ml_suggestions"]),
		Plots:             []plot.Request{},
	}
	in.DatasetSummary, _ = obj["dataset_summary"].(string)
	if list, ok := obj["plots"].([]any); ok {
		in.Plots = requests(list)
	}
	return in
}

// requests keeps entries whose type is a string and whose columns, when
// present, are all strings.
func requests(list []any) []plot.Request {
	out := make([]plot.Request, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typ, ok := m["type"].(string)
		if !ok {
			continue
		}
		req := plot.Request{Type: typ, Columns: []string{}}
		if raw, present := m["columns"]; present {
			cols, ok := raw.([]any)
			if !ok {
				continue
			}
			valid := true
			for _, c := range cols {
				s, ok := c.(string)
				if !ok {
					valid = false
					break
				}
				req.Columns = append(req.Columns, s)
			}
			if !valid {
				continue
			}
		}
		out = append(out, req)
	}
	return out
}

func strs(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
