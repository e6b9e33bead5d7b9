package p2p

import (
	"net"
	"net/netip"
	"testing"
	"time"
)

func TestLimitedListener(t *testing.T) {
	tests := []struct {
		name     string
		limit    time.Duration
		accepted int
	}{
		{"no limit", 0, 3},
		{"limited", time.Hour, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLimitedListener("127.0.0.1:0", tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			defer l.Close()

			for i := 0; i < 3; i++ {
				c, err := net.Dial("tcp", l.Addr().String())
				if err != nil {
					t.Fatal(err)
				}
				defer c.Close()
			}

			accepted, limited := 0, 0
			for i := 0; i < 3; i++ {
				con, err := l.Accept()
				switch err {
				case nil:
					accepted++
					con.Close()
				case errRateLimited:
					limited++
				default:
					t.Fatalf("Accept() error = %v", err)
				}
			}
			if accepted != tt.accepted || accepted+limited != 3 {
				t.Errorf("accepted = %d, limited = %d, want %d accepted", accepted, limited, tt.accepted)
			}
		})
	}
}

func TestNewLimitedListener_negative(t *testing.T) {
	if _, err := NewLimitedListener("127.0.0.1:0", -time.Second); err == nil {
		t.Error("negative limit accepted")
	}
}

func TestLimitedListener_allow(t *testing.T) {
	ll := &LimitedListener{limit: time.Second, seen: make(map[netip.Addr]time.Time)}
	now := time.Now()
	a := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("fe80::1%eth0")
	bOther := netip.MustParseAddr("fe80::1%eth1")

	if !ll.allow(a, now) || !ll.allow(b, now) {
		t.Fatal("first connection rejected")
	}
	if ll.allow(a, now.Add(time.Millisecond*500)) {
		t.Error("second connection within limit accepted")
	}
	if !ll.allow(bOther, now) {
		t.Error("same address on another interface rejected")
	}

	// the rejected attempt did not extend the lockout
	if !ll.allow(a, now.Add(time.Second)) {
		t.Error("connection after limit rejected")
	}

	// b expired and is forgotten once the map is trimmed
	ll.allow(netip.MustParseAddr("10.0.0.2"), now.Add(time.Second*3))
	if _, ok := ll.seen[b]; ok {
		t.Error("expired address still tracked")
	}
	if len(ll.seen) != 1 {
		t.Errorf("tracking %d addresses, want 1", len(ll.seen))
	}
}
