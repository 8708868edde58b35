package enrich

import (
	"fmt"
	"strings"

	"github.com/datascribe-labs/datascribe/internal/metadata"
	"github.com/datascribe-labs/datascribe/pkg/core"
)

// TableSystemPrompt frames every table-document generation call.
const TableSystemPrompt = `You are a data documentation writer. You receive
observed statistics and declared descriptions for one warehouse table and
produce a concise markdown document an analytics agent can use as context.
State only facts supported by the input. Keep the document under 400 words.`

// ProjectSystemPrompt frames the project-level document calls.
const ProjectSystemPrompt = `You are a data documentation writer. You receive
the structure of a SQL transformation project and produce a concise markdown
overview an analytics agent can use as context. State only facts supported by
the input.`

// BuildTablePrompt renders the generation prompt for one table. The
// deterministic fallback document doubles as the factual payload, so the
// model and the fallback always see the same facts.
func BuildTablePrompt(profile *core.TableStatisticsProfile, doc *metadata.Documentation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write documentation for the table %s based on these observed facts:\n\n", profile.Ref().String())
	sb.WriteString(FallbackTableDocument(profile, doc))
	sb.WriteString("\nDescribe what the table appears to contain, call out columns with high null rates or low cardinality, and note the time coverage if present.")
	return sb.String()
}

// BuildProjectSummaryPrompt renders the prompt for the project summary.
func BuildProjectSummaryPrompt(graph *core.ModelGraph) string {
	var sb strings.Builder
	sb.WriteString("Write a short overview of this SQL transformation project:\n\n")
	sb.WriteString(FallbackProjectSummary(graph))
	return sb.String()
}

// BuildModellingPrompt renders the prompt for the modelling-conventions doc.
func BuildModellingPrompt(graph *core.ModelGraph) string {
	var sb strings.Builder
	sb.WriteString("Describe the modelling conventions of this SQL transformation project:\n\n")
	sb.WriteString(FallbackModellingGuide(graph))
	return sb.String()
}
