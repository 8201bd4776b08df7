// Package discovery advertises the sharing server over mDNS so devices on
// the same network can find it without typing an address.
package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const domain = "local."

// Advertiser keeps one mDNS registration alive for the process lifetime.
type Advertiser struct {
	logger *zap.Logger
	server *zeroconf.Server
}

// Advertise registers the HTTP listener as an mDNS service. listenAddr is
// the address the server bound, e.g. ":5000" or "0.0.0.0:5000".
func Advertise(instance, service, listenAddr string, logger *zap.Logger) (*Advertiser, error) {
	port, err := portOf(listenAddr)
	if err != nil {
		return nil, err
	}

	txt := []string{"version=1", "proto=http"}
	server, err := zeroconf.Register(instance, service, domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	logger.Info("advertising on mDNS",
		zap.String("instance", instance),
		zap.String("service", service),
		zap.Int("port", port))
	return &Advertiser{logger: logger, server: server}, nil
}

// Shutdown withdraws the mDNS registration.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
	a.logger.Info("mDNS advertisement withdrawn")
}

func portOf(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", listenAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid port in listen address %q", listenAddr)
	}
	return port, nil
}
