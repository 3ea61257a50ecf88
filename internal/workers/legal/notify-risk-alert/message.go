// internal/workers/legal/notify-risk-alert/message.go
package notifyriskalert

import (
	"fmt"
	"html"
	"strings"

	"legal-analyzer/internal/analysis/risk"

	"github.com/slack-go/slack"
)

type alert struct {
	documentID string
	name       string
	level      string
	subject    string
	text       string
	score      float64
	redFlags   []string
}

func newAlert(input *Input) alert {
	name := input.Filename
	if name == "" {
		name = input.DocumentID
	}
	level := risk.Level(input.OverallRisk)

	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s (%s)\n", name, input.DocumentID)
	fmt.Fprintf(&b, "Overall risk: %.1f/10 (%s)\n", input.OverallRisk, level)
	if len(input.RedFlags) > 0 {
		b.WriteString("\nRed flags:\n")
		for _, f := range input.RedFlags {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	return alert{
		documentID: input.DocumentID,
		name:       name,
		level:      level,
		subject:    fmt.Sprintf("[%s] Legal review needed: %s", level, name),
		text:       b.String(),
		score:      input.OverallRisk,
		redFlags:   input.RedFlags,
	}
}

func (a alert) html() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(a.subject))
	fmt.Fprintf(&b, "<p>Overall risk: <strong>%.1f/10</strong> (%s)</p>", a.score, html.EscapeString(a.level))
	if len(a.redFlags) > 0 {
		b.WriteString("<ul>")
		for _, f := range a.redFlags {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(f))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func (a alert) slackBlocks() []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Legal risk alert", false, false)),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*%s*\nOverall risk *%.1f/10* (%s)", a.name, a.score, a.level), false, false),
			nil, nil,
		),
	}
	if len(a.redFlags) > 0 {
		lines := make([]string, 0, len(a.redFlags))
		for _, f := range a.redFlags {
			lines = append(lines, "• "+f)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false),
			nil, nil,
		))
	}
	return blocks
}
