package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestFromEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("host", "_binxfer._tcp", "local.")
	entry.Port = 1234

	if _, ok := fromEntry(entry); ok {
		t.Error("entry without addresses accepted")
	}

	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	svc, ok := fromEntry(entry)
	if !ok || svc.Addr() != "[fe80::1]:1234" {
		t.Errorf("ipv6 entry = %+v, %v", svc, ok)
	}

	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	svc, ok = fromEntry(entry)
	if !ok || svc.Addr() != "192.168.1.20:1234" || svc.Instance != "host" {
		t.Errorf("ipv4 entry = %+v, %v", svc, ok)
	}
}
