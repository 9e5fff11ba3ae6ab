package liveness

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/probe"
)

// RequestFailedMessage is the status of a probe whose request never got a
// response.
const RequestFailedMessage = "An Error was thrown trying to make request"

// Diagnoser explains transport failures for the logs.
type Diagnoser interface {
	Diagnose(ctx context.Context, target string) probe.DNSStatus
}

// Prober evaluates probe subjects. It never returns an error: every failure
// becomes a Down evaluation.
type Prober struct {
	Checker probe.Checker
	DNS     Diagnoser // optional
	Log     *zap.Logger
}

func (p *Prober) Probe(ctx context.Context, s domain.Subject, now time.Time) domain.Evaluation {
	res := p.Checker.Check(ctx, s.Name)
	if res.Err != nil {
		p.logTransportFailure(ctx, s.Name, res)
		return domain.Down(s, RequestFailedMessage, now)
	}
	if res.Success {
		return domain.Up(s, res.Reason, now)
	}
	return domain.Down(s, res.Reason, now)
}

func (p *Prober) logTransportFailure(ctx context.Context, url string, res probe.CheckResult) {
	if p.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("url", url),
		zap.Error(res.Err),
		zap.Float64("latency_ms", res.LatencyMS),
	}
	if p.DNS != nil {
		d := p.DNS.Diagnose(ctx, url)
		fields = append(fields,
			zap.String("dns_class", d.Class),
			zap.Strings("nameservers", d.Nameservers),
		)
	}
	p.Log.Warn("probe_request_failed", fields...)
}
