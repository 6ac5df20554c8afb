package condense

import (
	"strings"
	"text/template"

	"github.com/haasonsaas/condense/pkg/models"
)

// summaryPromptTemplate is the instruction template sent to the summarizer
// LLM. It is deliberately plain: the model only ever needs the previous
// summary (if any) and the events being forgotten, rendered as text.
const summaryPromptTemplate = `You are maintaining a running summary of an agent's conversation history.
{{if .PreviousSummary}}
Here is the summary so far:
{{.PreviousSummary}}
{{end}}
Incorporate the following additional events into the summary. Preserve
concrete facts, decisions, file paths, and outstanding tasks; omit
transient tool chatter that carries no lasting information.

{{range .Events}}{{.}}
{{end}}
Respond with only the updated summary text.`

// promptBuilder renders the summarization prompt via text/template. No
// third-party templating library in this codebase's dependency surface
// covers plain conditional/loop text rendering any better than the
// standard library does for a prompt this shape (see DESIGN.md).
type promptBuilder struct {
	tmpl *template.Template
}

func newPromptBuilder() *promptBuilder {
	return &promptBuilder{tmpl: template.Must(template.New("summary").Parse(summaryPromptTemplate))}
}

type promptData struct {
	PreviousSummary string
	Events          []string
}

func (p *promptBuilder) build(previousSummary string, forgotten []models.LLMConvertible, stringify Stringifier) string {
	if stringify == nil {
		stringify = DefaultStringifier
	}
	data := promptData{PreviousSummary: previousSummary}
	for _, e := range forgotten {
		data.Events = append(data.Events, stringify(e))
	}

	var out strings.Builder
	if err := p.tmpl.Execute(&out, data); err != nil {
		// text/template.Execute only fails on a malformed template, which
		// template.Must would already have caught at construction time.
		panic(err)
	}
	return out.String()
}
