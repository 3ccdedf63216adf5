// Package resolverfile parses a plain-text list of resolver endpoints
// into model.Resolver values for UDP-only benchmarking.
package resolverfile

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/taihen/resolvrank/internal/model"
)

const defaultPort = "53"

// Parse reads filePath and returns one Resolver per non-empty,
// non-comment line, with duplicate addresses collapsed by Dedup. Each
// line is an IP address, "IP:port", or a bracketed IPv6 literal with
// an optional port (hostnames are rejected), optionally followed by a
// "# label" comment which becomes the Resolver's Label.
//
// Example lines:
//
//	1.1.1.1
//	9.9.9.9:53 # Quad9
//	[2606:4700:4700::1111]:53
func Parse(filePath string) ([]model.Resolver, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolverfile: open %s: %w", filePath, err)
	}
	defer file.Close()

	var resolvers []model.Resolver
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("resolverfile: %s:%d: %w", filePath, lineNo, err)
		}
		resolvers = append(resolvers, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("resolverfile: read %s: %w", filePath, err)
	}
	if len(resolvers) == 0 {
		return nil, fmt.Errorf("resolverfile: no resolver endpoints found in %s", filePath)
	}
	return Dedup(resolvers), nil
}

func parseLine(line string) (model.Resolver, error) {
	endpoint := line
	label := ""
	if idx := strings.Index(line, "#"); idx != -1 {
		endpoint = strings.TrimSpace(line[:idx])
		label = strings.TrimSpace(line[idx+1:])
	}
	if endpoint == "" {
		return model.Resolver{}, fmt.Errorf("empty endpoint")
	}

	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		host = strings.Trim(endpoint, "[]")
		port = defaultPort
	}
	if net.ParseIP(host) == nil {
		return model.Resolver{}, fmt.Errorf("invalid IP address %q", host)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return model.Resolver{}, fmt.Errorf("invalid port %q", port)
	}

	return model.Resolver{
		Addr:  net.JoinHostPort(host, port),
		Label: label,
	}, nil
}

// Dedup removes resolvers with duplicate canonical addresses,
// keeping the first occurrence (and its label).
func Dedup(resolvers []model.Resolver) []model.Resolver {
	seen := make(map[string]struct{}, len(resolvers))
	out := make([]model.Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		if _, ok := seen[r.Addr]; ok {
			continue
		}
		seen[r.Addr] = struct{}{}
		out = append(out, r)
	}
	return out
}
