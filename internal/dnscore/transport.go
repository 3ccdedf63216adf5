package dnscore

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/taihen/resolvrank/internal/model"
)

// recvBufSize is large enough for EDNS0-extended UDP responses.
const recvBufSize = 4096

// Query performs a single DNS transaction over a fresh UDP socket: it
// sends one query, awaits exactly one datagram from the resolver, and
// returns a structured QueryResult. The socket is a dialed (connected)
// UDP socket, so the kernel itself discards datagrams from any source
// other than resolverAddr, without explicit address comparison.
//
// ctx bounds the whole transaction in addition to timeout; on process
// shutdown a canceled ctx unblocks the pending read immediately.
func Query(ctx context.Context, resolverAddr, qname string, qtype model.QType, timeout time.Duration, dnssec bool) model.QueryResult {
	msg, raw, err := BuildQuery(qname, qtype, dnssec)
	if err != nil {
		return model.QueryResult{Kind: model.OutcomeProtocolError, ErrKind: model.ErrParseFailure, Err: err}
	}

	conn, err := net.Dial("udp", resolverAddr)
	if err != nil {
		return model.QueryResult{Kind: model.OutcomeProtocolError, ErrKind: model.ErrSocketError, Err: err}
	}
	defer conn.Close()

	start := time.Now()
	deadline := start.Add(timeout)
	_ = conn.SetDeadline(deadline)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if _, err := conn.Write(raw); err != nil {
		return model.QueryResult{Kind: model.OutcomeProtocolError, ErrKind: model.ErrSocketError, Err: err}
	}

	buf := make([]byte, recvBufSize)
	n, err := conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return model.QueryResult{Kind: model.OutcomeTimeout, LatencyMS: float64(timeout.Microseconds()) / 1000.0}
		}
		return model.QueryResult{Kind: model.OutcomeProtocolError, ErrKind: model.ErrSocketError, Err: err}
	}
	latency := time.Since(start)

	validated, errKind, err := ParseResponse(buf[:n], msg.Id, qname, qtype)
	if err != nil {
		return model.QueryResult{Kind: model.OutcomeProtocolError, ErrKind: errKind, Err: err}
	}

	return model.QueryResult{
		Kind:        model.OutcomeOk,
		LatencyMS:   float64(latency.Microseconds()) / 1000.0,
		Validated:   true,
		HasARecords: validated.HasARecords,
		Rcode:       validated.Rcode,
	}
}
