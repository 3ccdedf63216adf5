// Package dnscore builds DNS request messages, validates and parses
// responses, and performs the per-query UDP transaction.
package dnscore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"github.com/taihen/resolvrank/internal/model"
)

// BuildQuery constructs a standard DNS query: RD=1, a single question,
// and (when dnssec is requested) an EDNS0 OPT record with a 4096-byte
// UDP payload size and the DO bit set. The transaction id is assigned
// by miekg/dns's SetQuestion (a fresh random id per call).
func BuildQuery(qname string, qtype model.QType, dnssec bool) (msg *dns.Msg, raw []byte, err error) {
	msg = new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), uint16(qtype))
	msg.RecursionDesired = true

	if dnssec {
		msg.SetEdns0(4096, true) // true = set the DO bit
	}

	raw, err = msg.Pack()
	if err != nil {
		return nil, nil, fmt.Errorf("dnscore: pack query: %w", err)
	}
	return msg, raw, nil
}

// Validated is the parsed, validated content of a response.
type Validated struct {
	Rcode       int
	HasARecords bool
}

// ParseResponse validates a raw response — unpacks cleanly, not
// truncated, transaction id matches, QR bit set, question echoes the
// query, rcode is NOERROR or NXDOMAIN — and, if valid, reports the
// rcode and whether the answer section contains at least one A
// record. Unknown RR types in any section are tolerated transparently
// by miekg/dns's Unpack, which skips them by RDLENGTH.
//
// On validation failure it returns the ProtocolErrorKind and an error
// describing why; Validated is the zero value in that case.
func ParseResponse(raw []byte, expectedID uint16, qname string, qtype model.QType) (Validated, model.ProtocolErrorKind, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return Validated{}, model.ErrParseFailure, fmt.Errorf("dnscore: unpack response: %w", err)
	}

	if msg.Truncated {
		return Validated{}, model.ErrTruncated, errors.New("dnscore: response truncated (TC=1)")
	}

	if msg.Id != expectedID {
		return Validated{}, model.ErrTxidMismatch, fmt.Errorf("dnscore: txid mismatch: got %d want %d", msg.Id, expectedID)
	}

	if !msg.Response {
		return Validated{}, model.ErrParseFailure, errors.New("dnscore: QR bit not set on response")
	}

	want := dns.Fqdn(qname)
	if len(msg.Question) != 1 ||
		!strings.EqualFold(msg.Question[0].Name, want) ||
		msg.Question[0].Qtype != uint16(qtype) {
		return Validated{}, model.ErrParseFailure, errors.New("dnscore: question section does not echo query")
	}

	rcode := msg.Rcode
	if rcode != dns.RcodeSuccess && rcode != dns.RcodeNameError {
		return Validated{}, model.ErrBadRcode, fmt.Errorf("dnscore: unexpected rcode %s", dns.RcodeToString[rcode])
	}

	hasA := false
	if rcode == dns.RcodeSuccess {
		for _, rr := range msg.Answer {
			if rr.Header().Rrtype == dns.TypeA {
				hasA = true
				break
			}
		}
	}

	return Validated{Rcode: rcode, HasARecords: hasA}, 0, nil
}
