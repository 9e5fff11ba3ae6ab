package probe

import (
	"context"
	"net"
	"testing"
)

type fakeResolver struct {
	ips    []net.IP
	ipErr  error
	cname  string
	ns     []*net.NS
	nsErr  error
	lookup string
}

func (f *fakeResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	f.lookup = host
	return f.ips, f.ipErr
}

func (f *fakeResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	if f.cname == "" {
		return host + ".", nil
	}
	return f.cname, nil
}

func (f *fakeResolver) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	return f.ns, f.nsErr
}

func TestDiagnose_Resolves(t *testing.T) {
	r := &fakeResolver{ips: []net.IP{net.ParseIP("192.0.2.1")}, cname: "edge.example.net."}
	d := &DNSDiagnoser{Resolver: r}

	s := d.Diagnose(context.Background(), "https://status.example.com/ping")
	if r.lookup != "status.example.com" {
		t.Fatalf("looked up %q", r.lookup)
	}
	if s.Class != DNSResolves || !s.HasAOrAAAA {
		t.Fatalf("want RESOLVES, got %+v", s)
	}
	if s.CNAME != "edge.example.net" {
		t.Fatalf("cname: %q", s.CNAME)
	}
}

func TestDiagnose_NotFoundWithNameservers(t *testing.T) {
	r := &fakeResolver{
		ipErr: &net.DNSError{Err: "no such host", Name: "x.example.com", IsNotFound: true},
		ns:    []*net.NS{{Host: "ns1.example.com."}},
	}
	s := (&DNSDiagnoser{Resolver: r}).Diagnose(context.Background(), "https://x.example.com")
	if s.Class != DNSNoARecord {
		t.Fatalf("want NO_A_RECORD, got %s", s.Class)
	}
	if len(s.Nameservers) != 1 || s.Nameservers[0] != "ns1.example.com" {
		t.Fatalf("nameservers: %v", s.Nameservers)
	}
}

func TestDiagnose_NXDomain(t *testing.T) {
	r := &fakeResolver{
		ipErr: &net.DNSError{Err: "no such host", Name: "gone.invalid", IsNotFound: true},
		nsErr: &net.DNSError{Err: "no such host", IsNotFound: true},
	}
	s := (&DNSDiagnoser{Resolver: r}).Diagnose(context.Background(), "http://gone.invalid")
	if s.Class != DNSNXDomain || s.ResolverError == "" {
		t.Fatalf("want NXDOMAIN, got %+v", s)
	}
}

func TestDiagnose_InvalidName(t *testing.T) {
	s := (&DNSDiagnoser{Resolver: &fakeResolver{}}).Diagnose(context.Background(), "   ")
	if s.Class != DNSInvalidName {
		t.Fatalf("want INVALID_NAME, got %s", s.Class)
	}
}
