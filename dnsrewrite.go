package urlfilter

import (
	"fmt"
	"net"
	"reflect"
	"sort"

	"github.com/filterwall/blockengine/rules"
	"github.com/miekg/dns"
)

// rewriteRRTTL is the TTL assigned to resource records synthesized from a
// $dnsrewrite rule. Ad-blocking rewrites are meant to be re-evaluated on
// every lookup rather than cached for long, so it mirrors the short TTL
// convention other DNS-level blockers in this space use.
const rewriteRRTTL = 60

// DNSRewritesAll returns all $dnsrewrite network rules.  To get the rules with
// exception logic applied, use (*DNSResult).DNSRewrites.
func (res *DNSResult) DNSRewritesAll() (nrules []*rules.NetworkRule) {
	if res == nil {
		return nil
	}

	for _, nr := range res.NetworkRules {
		if nr.DNSRewrite != nil {
			nrules = append(nrules, nr)
		}
	}

	return nrules
}

// removeNetworkRule changes nrules in-place to remove the element at index
// i and returns the resulting slice.
func removeNetworkRule(nrules []*rules.NetworkRule, i int) (flt []*rules.NetworkRule) {
	// See https://github.com/golang/go/wiki/SliceTricks#delete.
	//
	// TODO(a.garipov): Use golang.org/x/exp/slices in Go 1.18.
	return append(nrules[:i], nrules[i+1:]...)
}

// removeMatchingException changes nrules in-place to remove the elements that
// match DNS rewrite exception rule exc and returns the resulting slice.
func removeMatchingException(nrules []*rules.NetworkRule, exc *rules.NetworkRule) (flt []*rules.NetworkRule) {
	if exc.DNSRewrite == nil {
		return nrules
	}

	excdnsr := exc.DNSRewrite
	if *excdnsr == (rules.DNSRewrite{}) {
		// A rule like:
		//
		//   $dnsrewrite=
		//
		// Which means disabling all DNS rewrite rules.
		return nil
	}

	// Use the three-statement form as opposed to the range form, because we
	// change the slice in-place.
	for i := 0; i < len(nrules); i++ {
		nr := nrules[i]
		nrdnsr := nr.DNSRewrite
		if nrdnsr.NewCNAME != "" || excdnsr.NewCNAME != "" {
			if nrdnsr.NewCNAME == excdnsr.NewCNAME {
				nrules = removeNetworkRule(nrules, i)
				i--
			}

			continue
		}

		if nrdnsr.RCode == excdnsr.RCode {
			if excdnsr.RCode != dns.RcodeSuccess {
				nrules = removeNetworkRule(nrules, i)
				i--

				continue
			}

			if nrdnsr.RRType == excdnsr.RRType && reflect.DeepEqual(nrdnsr.Value, excdnsr.Value) {
				nrules = removeNetworkRule(nrules, i)
				i--
			}
		}
	}

	return nrules
}

// DNSRewrites returns $dnsrewrite network rules applying exception logic.  For
// example, rules like:
//
//	||example.com^$dnsrewrite=127.0.0.1
//	||example.com^$dnsrewrite=127.0.0.2
//	@@||example.com^$dnsrewrite=127.0.0.1
//
// Will result in example.com being rewritten to only return 127.0.0.2.
//
// To get all DNS rewrite rules without applying any exception logic, use
// (*DNSResult).DNSRewritesAll.
func (res *DNSResult) DNSRewrites() (nrules []*rules.NetworkRule) {
	// This is currently an O(m×n) algorithm, but the m--the number
	// of $dnsrewrite rules--will probably remain way below 10, and
	// so will n--the number of exceptions.

	if res == nil {
		return nil
	}

	nrules = res.DNSRewritesAll()

	// Use the three-statement form as opposed to the range form, because we
	// change the slice in-place.
	for i := 0; i < len(nrules); i++ {
		nr := nrules[i]
		if nr.Whitelist {
			nrules = removeNetworkRule(nrules, i)
			nrules = removeMatchingException(nrules, nr)
			// Rules on both sides of i may be gone now, so rescan from
			// the start.
			i = -1
		}
	}

	sort.Slice(nrules, func(i, j int) bool {
		return len(nrules[i].Shortcut) > len(nrules[j].Shortcut)
	})

	for i, nr := range nrules {
		if i > 0 && containsWildcard(nr) {
			nrules = nrules[:i]

			break
		}
	}

	return nrules
}

func containsWildcard(nr *rules.NetworkRule) (ok bool) {
	for _, c := range nr.RuleText {
		if c == '*' {
			return true
		} else if c == '^' {
			break
		}
	}

	return false
}

// BuildRewriteRR converts the winning $dnsrewrite rule for hostname (after
// DNSRewrites' exception filtering) into a dns.RR ready to be attached to a
// response message. CNAME, A, AAAA and TXT rewrites produce a record. It
// returns a nil RR and nil error when no rewrite rule applies, when the
// winning rule only sets an RCODE, and for rewrites of any other RRType. It
// returns an error when a matched rule carries a value of the wrong Go type
// for its RRType, or when dns.NewRR rejects the record text.
func (res *DNSResult) BuildRewriteRR(hostname string) (dns.RR, error) {
	nrules := res.DNSRewrites()
	if len(nrules) == 0 {
		return nil, nil
	}

	dnsr := nrules[0].DNSRewrite
	if dnsr == nil || *dnsr == (rules.DNSRewrite{}) {
		return nil, nil
	}

	fqdn := dns.Fqdn(hostname)

	if dnsr.NewCNAME != "" {
		return dns.NewRR(fmt.Sprintf("%s %d IN CNAME %s", fqdn, rewriteRRTTL, dns.Fqdn(dnsr.NewCNAME)))
	}

	switch dnsr.RRType {
	case dns.TypeA, dns.TypeAAAA:
		ip, ok := dnsr.Value.(net.IP)
		if !ok {
			return nil, fmt.Errorf("dnsrewrite: value for %s is not an IP", hostname)
		}

		typeName := "A"
		if dnsr.RRType == dns.TypeAAAA {
			typeName = "AAAA"
		}

		return dns.NewRR(fmt.Sprintf("%s %d IN %s %s", fqdn, rewriteRRTTL, typeName, ip))
	case dns.TypeTXT:
		s, ok := dnsr.Value.(string)
		if !ok {
			return nil, fmt.Errorf("dnsrewrite: value for %s is not a string", hostname)
		}

		return dns.NewRR(fmt.Sprintf("%s %d IN TXT %q", fqdn, rewriteRRTTL, s))
	default:
		return nil, nil
	}
}
