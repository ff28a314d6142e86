package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// DNS classes reported by CheckDNS.
const (
	DNSResolves        = "RESOLVES"
	DNSNXDomain        = "NXDOMAIN"
	DNSNoARecord       = "NO_A_RECORD"
	DNSServfailTimeout = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName     = "INVALID_NAME"
)

type DNSStatus struct {
	Domain        string
	HasAOrAAAA    bool
	IPs           []net.IP
	CNAME         string
	HasNS         bool
	Nameservers   []string
	Class         string
	ResolverError string
}

// Resolver is the subset of *net.Resolver used by CheckDNS.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

const dnsTimeout = 3 * time.Second

// CheckDNS classifies why a host may be unreachable.
func CheckDNS(ctx context.Context, r Resolver, host string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(host)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", s.Domain)
	if err == nil && len(ips) > 0 {
		s.HasAOrAAAA = true
		s.IPs = ips
		s.Class = DNSResolves
	} else if err != nil {
		var de *net.DNSError
		s.ResolverError = err.Error()
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServfailTimeout
			}
		}
	}

	if cname, err := r.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := r.LookupNS(ctx, s.Domain); err == nil && len(ns) > 0 {
		s.HasNS = true
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNXDomain {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		switch {
		case s.HasAOrAAAA:
			s.Class = DNSResolves
		case s.HasNS:
			s.Class = DNSNoARecord
		case s.ResolverError != "":
			s.Class = DNSServfailTimeout
		default:
			s.Class = DNSNXDomain
		}
	}
	return s
}

// DNSAnnotator wraps a prober and, for offline outcomes, appends the
// DNS class of the target host to the error ("... dns=NXDOMAIN").
// Online outcomes pass through untouched.
type DNSAnnotator struct {
	Inner    Prober
	Resolver Resolver
}

func (d *DNSAnnotator) Probe(ctx context.Context, target string) domain.CheckOutcome {
	out := d.Inner.Probe(ctx, target)
	if out.Status == domain.StatusOnline || ctx.Err() != nil {
		return out
	}
	dns := CheckDNS(ctx, d.Resolver, domain.Host(target))
	if dns.Class == DNSResolves {
		return out
	}
	out.Error = strings.TrimSpace(out.Error + " dns=" + dns.Class)
	return out
}
