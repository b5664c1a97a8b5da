package insight

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edalens/internal/analytics"
	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/utils"
)

const systemPrompt = "You are a senior data analyst. Respond with a single valid JSON object and nothing else."

const outputSchema = `{
  "dataset_summary": "string",
  "data_quality_issues": ["string"],
  "plots": [
    {
      "type": "hist|box|bar|scatter|line",
      "columns": ["col1", "col2 (if applicable)"]
    }
  ],
  "key_insights": ["string"],
  "ml_suggestions": ["string"]
}`

// Prompt is the rendered request plus its sections for token accounting.
type Prompt struct {
	System   string
	User     string
	Sections map[string]string
}

// BuildPrompt renders the metadata-only prompt from primitive profile and
// analytics trees.
func BuildPrompt(profiles profiling.Profiles, bundle analytics.Bundle) (Prompt, error) {
	cols, err := utils.PrettyJSON(profiles.Primitive()["columns"])
	if err != nil {
		return Prompt{}, fmt.Errorf("encode column profiles: %w", err)
	}
	stats, err := utils.PrettyJSON(bundle.Primitive())
	if err != nil {
		return Prompt{}, fmt.Errorf("encode analytics: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are given metadata from an automated EDA system.\n")
	sb.WriteString("You DO NOT have access to raw data.\n\n")
	sb.WriteString("Your tasks:\n")
	sb.WriteString("1. Summarize the dataset in plain English.\n")
	sb.WriteString("2. Identify key data quality issues.\n")
	sb.WriteString("3. Suggest meaningful visualizations.\n")
	sb.WriteString("4. Highlight 4-6 key analytical insights.\n")
	sb.WriteString("5. Suggest potential machine learning tasks (if applicable).\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Use ONLY the provided metadata.\n")
	sb.WriteString("- Suggest plots ONLY from the allowed types, with columns in the listed order.\n")
	sb.WriteString("- Output MUST be valid JSON. Do NOT include explanations outside JSON.\n\n")
	sb.WriteString("Allowed plot types (type: column logical types):\n")
	for _, line := range plot.Describe() {
		sb.WriteString("- " + line + "\n")
	}
	sb.WriteString("\nColumn profiles:\n")
	sb.Write(cols)
	sb.WriteString("\n\nAnalytics summary:\n")
	sb.Write(stats)
	sb.WriteString("\n\nOutput JSON schema:\n")
	sb.WriteString(outputSchema)

	return Prompt{
		System: systemPrompt,
		User:   sb.String(),
		Sections: map[string]string{
			"column_profiles": string(cols),
			"analytics":       string(stats),
		},
	}, nil
}
