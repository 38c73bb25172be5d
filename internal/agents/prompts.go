package agents

import (
	"fmt"
	"strings"

	"github.com/haandol/open-perplexity/internal/models"
)

const valuesBlock = `## Ethics and Compliance
Your responses must align with our values:
<values>
- Integrity: Never deceive or aid in deception.
- Compliance: Refuse any request that violates laws or our policies.
- Privacy: Protect all personal and corporate data.
</values>
If a request conflicts with these values, respond: "I cannot perform that action as it goes against Open Perplexity's values."`

// renderHistory flattens prior turns into a tagged block for prompt
// embedding. Empty history renders as an empty block.
func renderHistory(messages []models.Message) string {
	var b strings.Builder
	b.WriteString("<conversation>\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "<%s>%s</%s>\n", m.Role, m.Content, m.Role)
	}
	b.WriteString("</conversation>")
	return b.String()
}
