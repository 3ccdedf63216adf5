// Package sysresolv discovers the system's configured DNS resolvers
// so they can be included as benchmark candidates.
package sysresolv

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"regexp"
	"runtime"

	"github.com/taihen/resolvrank/internal/model"
)

const resolvConfPath = "/etc/resolv.conf"

var nameserverLine = regexp.MustCompile(`^\s*nameserver\s+([^\s]+)\s*$`)

// Discover returns the system's configured recursive resolvers as
// UDP port-53 Resolver values, labeled "system". It reads
// /etc/resolv.conf on Unix-like systems; Windows is not supported.
func Discover() ([]model.Resolver, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("sysresolv: system resolver discovery is not supported on windows")
	}

	file, err := os.Open(resolvConfPath)
	if err != nil {
		return nil, fmt.Errorf("sysresolv: open %s: %w", resolvConfPath, err)
	}
	defer file.Close()

	var resolvers []model.Resolver
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		match := nameserverLine.FindStringSubmatch(scanner.Text())
		if len(match) != 2 {
			continue
		}
		ip := net.ParseIP(match[1])
		if ip == nil {
			continue
		}
		resolvers = append(resolvers, model.Resolver{
			Addr:  net.JoinHostPort(ip.String(), "53"),
			Label: "system",
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sysresolv: read %s: %w", resolvConfPath, err)
	}
	if len(resolvers) == 0 {
		return nil, fmt.Errorf("sysresolv: no nameservers found in %s", resolvConfPath)
	}
	return resolvers, nil
}
