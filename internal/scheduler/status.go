package scheduler

import (
	"html"
	"strconv"
	"strings"

	"github.com/hamed0406/statechecker/internal/domain"
)

// StatusInput is what a status summary is rendered from.
type StatusInput struct {
	ProbeEveryMinutes int
	JustStarted       bool
	// Cadences lists the status cadence of every channel the message goes to.
	Cadences    []int
	Evaluations []domain.Evaluation
}

// RenderStatus builds the informational summary sent to the info audience.
func RenderStatus(in StatusInput) string {
	var b strings.Builder
	b.WriteString("<b><u>Tools are being checked.</u></b>\nWebsites are being checked every <b>")
	b.WriteString(strconv.Itoa(in.ProbeEveryMinutes))
	b.WriteString("</b> minutes")

	if in.JustStarted {
		b.WriteString("\nJust (re-)started checking tools.")
		for _, c := range in.Cadences {
			b.WriteString("\n\nAbout every <b>" + strconv.Itoa(c) +
				"</b> minutes a status message should be sent, to verify that this program is still working correctly.")
		}
	} else {
		b.WriteString("\n\nThis is an information to ensure, that the program is working correctly.")
		for _, c := range in.Cadences {
			b.WriteString("\n\nThis message should show up again in " + strconv.Itoa(c) +
				" minutes, verifying that this program is still working correctly.")
		}
	}
	b.WriteString("\nIf not -&gt; Try to restart this program and take a look at the logs.")
	b.WriteString("\n\n")

	for _, ev := range in.Evaluations {
		b.WriteString(renderStatusLine(ev))
	}
	return b.String()
}

func renderStatusLine(ev domain.Evaluation) string {
	state := "UP!"
	if !ev.Up {
		state = "DOWN!"
	}
	var b strings.Builder
	b.WriteString("🔸Tool " + html.EscapeString(ev.Name) + " is <b><u>" + state + "</u></b>")
	if ev.Description != "" {
		b.WriteString("\n" + html.EscapeString(ev.Description))
	}
	if ev.StatusMessage != "" && ev.StatusMessage != domain.StatusOK {
		b.WriteString("\n" + html.EscapeString(ev.StatusMessage))
	}
	if ev.CheckingEveryMinutes != nil {
		b.WriteString("\nChecking state every <b>" + strconv.Itoa(*ev.CheckingEveryMinutes) + "</b> minutes")
	}
	b.WriteString("\n\n")
	return b.String()
}
