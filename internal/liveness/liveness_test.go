package liveness

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/probe"
)

var now = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

func heartbeat(lastSeenAgo time.Duration, freq, tol int) domain.Subject {
	return domain.HeartbeatSubject{
		Name:             "sync-worker",
		LastSeenAt:       now.Add(-lastSeenAgo),
		FrequencyMinutes: freq,
		ToleranceSeconds: tol,
	}.Subject()
}

func TestHeartbeat_BoundaryIsUp(t *testing.T) {
	// threshold 5*60+60 = 360s
	if ev := Heartbeat(heartbeat(360*time.Second, 5, 60), now); !ev.Up {
		t.Fatalf("exactly at threshold must be up: %+v", ev)
	}
	if ev := Heartbeat(heartbeat(361*time.Second, 5, 60), now); ev.Up {
		t.Fatalf("one second past threshold must be down: %+v", ev)
	}
	if ev := Heartbeat(heartbeat(360*time.Second+time.Nanosecond, 5, 60), now); ev.Up {
		t.Fatalf("strictly past threshold must be down: %+v", ev)
	}
}

func TestHeartbeat_StaleWorkerIsDown(t *testing.T) {
	ev := Heartbeat(heartbeat(600*time.Second, 5, 60), now)
	if ev.Up {
		t.Fatalf("want down, got %+v", ev)
	}
	if ev.Name != "sync-worker" || ev.Kind != domain.KindHeartbeat {
		t.Fatalf("identity lost: %+v", ev)
	}
	if ev.CheckingEveryMinutes == nil || *ev.CheckingEveryMinutes != 5 {
		t.Fatalf("checking every: %v", ev.CheckingEveryMinutes)
	}
}

func TestBackup_UsesSixtyFiveSecondsPerMinute(t *testing.T) {
	mk := func(ago time.Duration) domain.Subject {
		return domain.BackupSubject{
			Name:                 "db",
			FrequencyMinutes:     60,
			MostRecentArtifactAt: now.Add(-ago),
		}.Subject()
	}
	if !Backup(mk(3600*time.Second), now).Up {
		t.Fatal("3600s elapsed must be up")
	}
	if !Backup(mk(3900*time.Second), now).Up {
		t.Fatal("3900s elapsed is the boundary and must be up")
	}
	if Backup(mk(3901*time.Second), now).Up {
		t.Fatal("3901s elapsed must be down")
	}
}

func TestBackup_EmptyFolderIsDown(t *testing.T) {
	s := domain.BackupSubject{Name: "db", FrequencyMinutes: 1440, MostRecentArtifactAt: time.Unix(0, 0)}.Subject()
	if Backup(s, now).Up {
		t.Fatal("epoch artifact must be down")
	}
}

type stubChecker struct {
	res    probe.CheckResult
	target string
}

func (s *stubChecker) Check(ctx context.Context, target string) probe.CheckResult {
	s.target = target
	return s.res
}

type stubDNS struct{ called bool }

func (s *stubDNS) Diagnose(ctx context.Context, target string) probe.DNSStatus {
	s.called = true
	return probe.DNSStatus{Class: probe.DNSNXDomain}
}

func probeSubject() domain.Subject {
	return domain.ProbeSubject{URL: "https://example.com", State: domain.StateUp}.Subject()
}

func TestProber_200IsUp(t *testing.T) {
	c := &stubChecker{res: probe.CheckResult{Success: true, StatusCode: 200, Reason: "OK"}}
	p := &Prober{Checker: c}
	ev := p.Probe(context.Background(), probeSubject(), now)
	if !ev.Up || ev.StatusMessage != "OK" {
		t.Fatalf("want up OK, got %+v", ev)
	}
	if c.target != "https://example.com" {
		t.Fatalf("probed %q", c.target)
	}
}

func TestProber_Non200CarriesReason(t *testing.T) {
	p := &Prober{Checker: &stubChecker{res: probe.CheckResult{StatusCode: 503, Reason: "Service Unavailable"}}}
	ev := p.Probe(context.Background(), probeSubject(), now)
	if ev.Up || ev.StatusMessage != "Service Unavailable" {
		t.Fatalf("want down with reason, got %+v", ev)
	}
}

func TestProber_TransportErrorIsDownWithFixedMessage(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dns := &stubDNS{}
	p := &Prober{
		Checker: &stubChecker{res: probe.CheckResult{Err: errors.New("dial tcp: refused")}},
		DNS:     dns,
		Log:     zap.New(core),
	}
	ev := p.Probe(context.Background(), probeSubject(), now)
	if ev.Up || ev.StatusMessage != RequestFailedMessage {
		t.Fatalf("want fixed message, got %+v", ev)
	}
	if !dns.called {
		t.Fatal("dns diagnostics should run on transport failure")
	}
	if logs.FilterMessage("probe_request_failed").Len() != 1 {
		t.Fatalf("want one probe_request_failed log, got %d", logs.Len())
	}
}

func TestEvaluator_DispatchesByKind(t *testing.T) {
	e := &Evaluator{
		Prober: &Prober{Checker: &stubChecker{res: probe.CheckResult{Success: true, StatusCode: 200, Reason: "OK"}}},
	}
	ctx := context.Background()

	ev, err := e.Evaluate(ctx, heartbeat(600*time.Second, 5, 60), now)
	if err != nil || ev.Up {
		t.Fatalf("heartbeat: %+v %v", ev, err)
	}
	ev, err = e.Evaluate(ctx, probeSubject(), now)
	if err != nil || !ev.Up {
		t.Fatalf("probe: %+v %v", ev, err)
	}
	if _, err := e.Evaluate(ctx, domain.Subject{Kind: "cron"}, now); err == nil {
		t.Fatal("unknown kind must error")
	}
}

func TestEvaluator_DefaultTolerance(t *testing.T) {
	e := &Evaluator{DefaultToleranceSeconds: 120}
	// 5 min + 120s = 420s; 400s ago is still up only with the default applied
	ev, err := e.Evaluate(context.Background(), heartbeat(400*time.Second, 5, 0), now)
	if err != nil || !ev.Up {
		t.Fatalf("want up with default tolerance, got %+v %v", ev, err)
	}
}
