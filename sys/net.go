// Package sys holds small host and network helpers.
package sys

import (
	"net"
	neturl "net/url"
	"strings"
)

// FreeAddr returns a loopback host:port that was free when checked.
func FreeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return l.Addr().String(), nil
}

// IsLocalhost reports whether a URL or bare host[:port] names the local machine.
func IsLocalhost(addr string) bool {
	host := addr
	if u, err := neturl.Parse(addr); err == nil && u.Host != "" {
		host = u.Hostname()
	} else if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else {
		host = strings.Trim(host, "[]")
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}

// IsPlaintextRemote reports whether rawURL would send credentials unencrypted
// to another machine: an http:// or redis:// URL whose host is not local.
func IsPlaintextRemote(rawURL string) bool {
	u, err := neturl.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "redis":
		return !IsLocalhost(rawURL)
	}
	return false
}
