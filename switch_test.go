package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeerStore(t *testing.T) {
	conf := testConfiguration()
	ps := NewPeerStore()

	in, _ := pipePeer(t, conf, RouterLinks{}, true)
	out, _ := pipePeer(t, conf, RouterLinks{}, false)

	require.NoError(t, ps.Add(in))
	require.NoError(t, ps.Add(out))
	require.Error(t, ps.Add(in))

	require.Equal(t, 2, ps.Total())
	require.Equal(t, 1, ps.Unique()) // both are "pipe"
	require.Equal(t, 2, ps.Count("pipe"))
	require.Equal(t, 1, ps.Incoming())
	require.Equal(t, 1, ps.Outgoing())
	require.Same(t, in, ps.Get(in.Hash))
	require.Len(t, ps.Slice(), 2)

	require.True(t, ps.Remove(in))
	require.False(t, ps.Remove(in))
	require.Equal(t, 1, ps.Total())
	require.Equal(t, 0, ps.Incoming())
	require.Len(t, ps.Slice(), 1)

	require.True(t, ps.Remove(out))
	require.Equal(t, 0, ps.Unique())
	require.Nil(t, ps.Get(out.Hash))
}

func TestSwitch(t *testing.T) {
	id, err := NewRouterID()
	require.NoError(t, err)
	s := NewSwitch(id, 10)
	require.Equal(t, id, s.RouterID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	delivered := make(chan PeerParcel, 10)
	go s.Run(ctx, func(pp PeerParcel) { delivered <- pp })

	conf := testConfiguration()
	p, B := pipePeer(t, conf, s.Links(), false)
	s.AddPeerInterface(p)
	require.Len(t, s.Peers(), 1)

	codec := newFrameCodec(B)
	require.NoError(t, codec.Send(NewParcel(TypeData, []byte("hi"))))
	select {
	case pp := <-delivered:
		require.Same(t, p, pp.Peer)
		require.Equal(t, []byte("hi"), pp.Parcel.Payload)
	case <-time.After(time.Second):
		t.Fatal("parcel was not delivered")
	}

	go func() { codec.Receive() }()
	require.Equal(t, 1, s.Broadcast(NewParcel(TypeControl, []byte("all"))))

	// a dying peer removes itself through the dead peer channel
	B.Close()
	require.Eventually(t, func() bool {
		return len(s.Peers()) == 0
	}, time.Second, time.Millisecond*10)

	// unknown peers are stopped and otherwise ignored
	other, _ := pipePeer(t, conf, RouterLinks{}, true)
	s.HandleDeadPeer(other)
	select {
	case <-other.Done():
	default:
		t.Error("peer was not stopped")
	}
}

func TestSwitch_AddPeerInterface_stopped(t *testing.T) {
	id, err := NewRouterID()
	require.NoError(t, err)
	s := NewSwitch(id, 10)

	p, B := pipePeer(t, testConfiguration(), s.Links(), false)
	B.Close()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("peer did not stop")
	}

	// the dead notification arrives before the peer is added
	select {
	case dead := <-s.dead:
		require.Same(t, p, dead)
		s.HandleDeadPeer(dead)
	case <-time.After(time.Second):
		t.Fatal("no dead peer notification")
	}

	s.AddPeerInterface(p)
	require.Empty(t, s.Peers())
	require.Equal(t, 0, s.peers.Total())
}
