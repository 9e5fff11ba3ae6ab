package transition

import (
	"html"
	"strings"

	"github.com/hamed0406/statechecker/internal/domain"
)

func RenderDown(ev domain.Evaluation) string {
	return render("Your tool is <b>DOWN!</b> \n\n", ev)
}

func RenderUp(ev domain.Evaluation) string {
	return render("Your tool is <b>UP AGAIN!</b> \n\n", ev)
}

func Render(dir domain.Direction, ev domain.Evaluation) string {
	if dir == domain.BecameUp {
		return RenderUp(ev)
	}
	return RenderDown(ev)
}

// render escapes subject fields; the channels parse messages as HTML.
func render(header string, ev domain.Evaluation) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<b>" + html.EscapeString(ev.Name) + "</b>")
	if ev.Description != "" {
		b.WriteString("\n" + html.EscapeString(ev.Description))
	}
	if ev.StatusMessage != "" && ev.StatusMessage != domain.StatusOK {
		b.WriteString("\n" + html.EscapeString(ev.StatusMessage))
	}
	return b.String()
}
