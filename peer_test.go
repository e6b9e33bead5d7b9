package p2p

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeer_sendLoop(t *testing.T) {
	conf := testConfiguration()
	p, B := pipePeer(t, conf, RouterLinks{}, false)
	start := time.Now()

	parcels := make([]*Parcel, 32)
	for i := range parcels {
		parcels[i] = testRandomParcel()
		if !p.Send(parcels[i]) {
			t.Fatalf("failed to add parcel %d", i)
		}
	}

	codec := newFrameCodec(B)
	for i := range parcels {
		got, err := codec.Receive()
		require.NoError(t, err)
		if got.Type != parcels[i].Type || !bytes.Equal(got.Payload, parcels[i].Payload) {
			t.Errorf("parcel %d didn't arrive the same. got = %s, want = %s", i, got, parcels[i])
		}
	}

	require.Eventually(t, func() bool {
		return p.LastSendAge() <= time.Since(start)
	}, time.Second, time.Millisecond*10, "peer.lastSend did not update")
}

func TestPeer_readLoop(t *testing.T) {
	conf := testConfiguration()
	data := make(chan PeerParcel, 1)
	control := make(chan PeerParcel, 1)
	p, B := pipePeer(t, conf, RouterLinks{Data: data, Control: control}, true)

	codec := newFrameCodec(B)
	require.NoError(t, codec.Send(NewParcel(TypeData, []byte("d"))))
	require.NoError(t, codec.Send(NewParcel(TypeControl, []byte("c"))))

	select {
	case pp := <-data:
		require.Same(t, p, pp.Peer)
		require.Equal(t, []byte("d"), pp.Parcel.Payload)
	case <-time.After(time.Second):
		t.Fatal("data parcel not routed")
	}
	select {
	case pp := <-control:
		require.Same(t, p, pp.Peer)
		require.Equal(t, TypeControl, pp.Parcel.Type)
	case <-time.After(time.Second):
		t.Fatal("control parcel not routed")
	}
	require.Less(t, p.LastReceiveAge(), time.Second)
}

func TestPeer_Stop(t *testing.T) {
	conf := testConfiguration()
	dead := make(chan *Peer, 4)
	A, B := net.Pipe()
	defer B.Close()
	p := newPeer(conf, RouterLinks{DeadPeers: dead}, A, TransportTCP, "pipe", false)
	h := p.Refer()
	require.True(t, h.Alive())

	// remote hangs up
	B.Close()

	select {
	case got := <-dead:
		require.Same(t, p, got)
	case <-time.After(time.Second):
		t.Fatal("peer did not report its death")
	}
	require.False(t, h.Alive())
	require.False(t, p.Send(NewParcel(TypeData, nil)))

	p.Stop()
	select {
	case <-dead:
		t.Fatal("peer reported its death twice")
	case <-time.After(time.Millisecond * 50):
	}
}

func TestLiveHandle(t *testing.T) {
	var zero LiveHandle
	require.False(t, zero.Alive())
	require.Nil(t, zero.upgrade())

	p, _ := pipePeer(t, testConfiguration(), RouterLinks{}, false)
	h := p.Refer()
	require.True(t, h.Alive())
	require.Same(t, p, h.upgrade())

	p.Stop()
	for i := 0; i < 3; i++ {
		require.False(t, h.Alive())
	}
}

func TestPeer_GetMetrics(t *testing.T) {
	conf := testConfiguration()
	p, B := pipePeer(t, conf, RouterLinks{}, true)

	m := p.GetMetrics()
	require.Equal(t, p.Hash, m.Hash)
	require.True(t, m.Incoming)
	require.Equal(t, TransportTCP, m.Transport)
	require.True(t, m.LastSend.IsZero())

	require.True(t, p.Send(NewParcel(TypeData, []byte("x"))))
	_, err := newFrameCodec(B).Receive()
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return !p.GetMetrics().LastSend.IsZero()
	}, time.Second, time.Millisecond*10)
}
