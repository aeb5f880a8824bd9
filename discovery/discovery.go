// Package discovery advertises and finds file servers on the local network over mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const domain = "local."

// ErrNoServer is returned when browsing finds nothing before the deadline.
var ErrNoServer = errors.New("no server found on the local network")

// Service is a discovered server.
type Service struct {
	Instance string
	Host     string
	Port     int
}

// Addr returns the host:port to dial.
func (s Service) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// Advertise registers the server under serviceType and blocks until ctx is done.
func Advertise(ctx context.Context, serviceType string, port int, logger *zap.Logger) error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}

	server, err := zeroconf.Register(hostname, serviceType, domain, port, []string{"txtv=1"}, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	defer server.Shutdown()

	logger.Info("advertising service", zap.String("instance", hostname), zap.String("type", serviceType), zap.Int("port", port))
	<-ctx.Done()
	return nil
}

// Browse looks for servers of serviceType until timeout and returns the
// first one that resolves to an address.
func Browse(ctx context.Context, serviceType string, timeout time.Duration) (Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Service{}, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, serviceType, domain, entries); err != nil {
		return Service{}, fmt.Errorf("failed to browse: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return Service{}, ErrNoServer
		case entry, ok := <-entries:
			if !ok {
				return Service{}, ErrNoServer
			}
			if svc, ok := fromEntry(entry); ok {
				return svc, nil
			}
		}
	}
}

func fromEntry(entry *zeroconf.ServiceEntry) (Service, bool) {
	if entry == nil {
		return Service{}, false
	}
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return Service{}, false
	}
	return Service{Instance: entry.Instance, Host: host, Port: entry.Port}, true
}
