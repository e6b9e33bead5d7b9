package p2p

import (
	"bytes"
	"testing"
)

func testBeacon(t *testing.T, port uint16, id RouterID) []byte {
	b, err := Beacon{Port: port, RouterID: id}.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBeacon_MarshalBinary(t *testing.T) {
	var id RouterID
	for i := range id {
		id[i] = byte(i)
	}

	b := testBeacon(t, 0x2703, id)
	if len(b) != 50 {
		t.Fatalf("beacon has length %d, want 50", len(b))
	}
	if !bytes.Equal(b[:8], []byte("mycelium")) {
		t.Errorf("wrong magic %q", b[:8])
	}
	if b[8] != 0x27 || b[9] != 0x03 {
		t.Errorf("port is not big endian: %x", b[8:10])
	}
	if !bytes.Equal(b[10:], id[:]) {
		t.Errorf("router id mismatch")
	}
}

func TestParseBeacon(t *testing.T) {
	id, err := NewRouterID()
	if err != nil {
		t.Fatal(err)
	}
	valid := testBeacon(t, 9651, id)

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'M'

	zeroPort := append([]byte(nil), valid...)
	zeroPort[8], zeroPort[9] = 0, 0

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid", valid, nil},
		{"empty", nil, errBeaconSize},
		{"49 bytes", valid[:49], errBeaconSize},
		{"51 bytes", append(append([]byte(nil), valid...), 0), errBeaconSize},
		{"bad magic", badMagic, errBeaconMagic},
		{"zero port", zeroPort, errBeaconPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBeacon(tt.data)
			if err != tt.wantErr {
				t.Fatalf("ParseBeacon() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (b.Port != 9651 || b.RouterID != id) {
				t.Errorf("ParseBeacon() = %s", b)
			}
		})
	}
}
