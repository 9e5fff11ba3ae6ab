package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewEmail_RejectsUnknownPort(t *testing.T) {
	if _, err := NewEmail("smtp.example.com", 2525, "u", "p", "", nil, nil); err == nil {
		t.Fatal("port 2525 must be rejected")
	}
	e, err := NewEmail("smtp.example.com", 587, "bot@example.com", "p", "", nil, nil)
	if err != nil {
		t.Fatalf("587 must be accepted: %v", err)
	}
	if e.From != "bot@example.com" {
		t.Fatalf("from should default to user, got %q", e.From)
	}
}

func TestEmail_SendPerRecipient(t *testing.T) {
	e, _ := NewEmail("smtp.example.com", 465, "bot@example.com", "p", "",
		[]string{"a@example.com", "b@example.com"}, []string{"c@example.com"})

	sent := map[string]string{}
	e.send = func(ctx context.Context, to string, msg []byte) error {
		if to == "a@example.com" {
			return errors.New("mailbox full")
		}
		sent[to] = string(msg)
		return nil
	}

	err := e.Send(context.Background(), AudienceError, "Your tool is <b>DOWN!</b> \n\n<b>x</b>")
	if err == nil || !strings.Contains(err.Error(), "mailbox full") {
		t.Fatalf("want recipient error, got %v", err)
	}
	msg, ok := sent["b@example.com"]
	if !ok {
		t.Fatal("second recipient must still get the mail")
	}
	if !strings.Contains(msg, "Subject: State Checker Error") {
		t.Fatalf("subject missing: %q", msg)
	}
	if !strings.Contains(msg, "<b>DOWN!</b> <br/><br/><b>x</b>") {
		t.Fatalf("newlines should become <br/>: %q", msg)
	}

	if err := e.Send(context.Background(), AudienceInfo, "status"); err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(sent["c@example.com"], "Subject: State Checker Information") {
		t.Fatalf("info subject: %q", sent["c@example.com"])
	}
}
