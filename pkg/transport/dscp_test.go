package transport

import (
	"net"
	"testing"
)

func TestSetDSCP(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("no IPv4 loopback: %v", err)
	}
	defer conn.Close()

	if err := SetDSCP(conn, false, DSCPAF41); err != nil {
		t.Fatalf("SetDSCP failed: %v", err)
	}
	got, err := DSCP(conn, false)
	if err != nil {
		t.Fatalf("DSCP failed: %v", err)
	}
	if got != DSCPAF41 {
		t.Errorf("DSCP() = %d, want %d", got, DSCPAF41)
	}

	if err := SetDSCP(conn, false, 64); err == nil {
		t.Error("expected error for out-of-range DSCP")
	}
}
