package transition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo/memory"
)

var at = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

func TestDecide_Table(t *testing.T) {
	cases := []struct {
		name     string
		up       bool
		notified bool
		want     Decision
	}{
		{"down fresh", false, false, Decision{Emit: true, Direction: domain.BecameDown, Notified: true}},
		{"down already notified", false, true, Decision{}},
		{"recovered", true, true, Decision{Emit: true, Direction: domain.BecameUp, Notified: false}},
		{"steady up", true, false, Decision{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := domain.HeartbeatSubject{Name: "x", DownNotified: c.notified}.Subject()
			ev := domain.Evaluation{Name: "x", Up: c.up}
			if got := Decide(s, ev); got != c.want {
				t.Fatalf("got %+v want %+v", got, c.want)
			}
		})
	}
}

func TestRender_Shapes(t *testing.T) {
	ev := domain.Evaluation{Name: "sync-worker", Description: "nightly sync", StatusMessage: "Bad Gateway"}
	want := "Your tool is <b>DOWN!</b> \n\n<b>sync-worker</b>\nnightly sync\nBad Gateway"
	if got := RenderDown(ev); got != want {
		t.Fatalf("down:\n%q\nwant\n%q", got, want)
	}

	ev = domain.Evaluation{Name: "https://x", StatusMessage: domain.StatusOK}
	if got := RenderUp(ev); got != "Your tool is <b>UP AGAIN!</b> \n\n<b>https://x</b>" {
		t.Fatalf("up: %q", got)
	}
}

func TestRender_EscapesSubjectFields(t *testing.T) {
	ev := domain.Evaluation{Name: "https://x/?a=1&b=2", Description: "R&D <staging>"}
	want := "Your tool is <b>DOWN!</b> \n\n<b>https://x/?a=1&amp;b=2</b>\nR&amp;D &lt;staging&gt;"
	if got := RenderDown(ev); got != want {
		t.Fatalf("got\n%q\nwant\n%q", got, want)
	}
}

func TestDetector_HeartbeatPersistsOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	if err := st.RegisterHeartbeat(ctx, domain.HeartbeatSubject{Name: "sync", FrequencyMinutes: 5, LastSeenAt: at}); err != nil {
		t.Fatal(err)
	}
	var det Detector

	load := func() domain.Subject {
		hs, _ := st.ListHeartbeatSubjects(ctx)
		return hs[0].Subject()
	}

	s := load()
	ev, err := det.Process(ctx, st, s, domain.Down(s, "", at))
	if err != nil || ev == nil || ev.Direction != domain.BecameDown {
		t.Fatalf("first down: %+v %v", ev, err)
	}
	if !load().DownNotified {
		t.Fatal("flag must be persisted")
	}

	s = load()
	if ev, err := det.Process(ctx, st, s, domain.Down(s, "", at)); err != nil || ev != nil {
		t.Fatalf("second down must be silent: %+v %v", ev, err)
	}

	s = load()
	ev, err = det.Process(ctx, st, s, domain.Up(s, "", at))
	if err != nil || ev == nil || ev.Direction != domain.BecameUp {
		t.Fatalf("up: %+v %v", ev, err)
	}
	if load().DownNotified {
		t.Fatal("flag must be reset")
	}
}

func TestDetector_ProbePersistsState(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	url := "https://example.com"
	_ = st.UpsertProbeSubjectIfAbsent(ctx, url, domain.StateUp, false)

	p, _ := st.GetProbeSubject(ctx, url)
	s := p.Subject()
	if _, err := (Detector{}).Process(ctx, st, s, domain.Down(s, "Not Found", at)); err != nil {
		t.Fatal(err)
	}
	p, _ = st.GetProbeSubject(ctx, url)
	if p.State != domain.StateDown || !p.DownNotified {
		t.Fatalf("probe row: %+v", p)
	}
}

func TestDetector_PersistFailureIsPersistenceError(t *testing.T) {
	st := memory.New()
	s := domain.HeartbeatSubject{Name: "ghost"}.Subject()
	_, err := (Detector{}).Process(context.Background(), st, s, domain.Down(s, "", at))
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
}
