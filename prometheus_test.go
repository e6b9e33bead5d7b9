package p2p

import (
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Gauge != nil {
		return pb.Gauge.GetValue()
	}
	return pb.Counter.GetValue()
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := new(Prometheus)
	p.Setup(reg)
	p.Setup(reg) // registering twice would panic

	p.KnownPeers(4)
	p.PeerAdded(OriginDiscovered)
	p.PeerAdded(OriginDiscovered)
	p.PeerAdded(OriginInbound)
	p.ConnectionAttempted()
	p.ConnectionAttempted()
	p.ConnectionFinished(false)
	p.DiscoveryBeacon(true)
	p.DiscoveryBeacon(false)
	p.DiscoveryBeacon(false)

	require.Equal(t, 4.0, metricValue(t, p.Known))
	require.Equal(t, 1.0, metricValue(t, p.Connecting))
	require.Equal(t, 2.0, metricValue(t, p.ConnectionAttempts))
	require.Equal(t, 1.0, metricValue(t, p.ConnectionFailures))
	require.Equal(t, 2.0, metricValue(t, p.PeersAdded.WithLabelValues("discovered")))
	require.Equal(t, 1.0, metricValue(t, p.PeersAdded.WithLabelValues("inbound")))
	require.Equal(t, 0.0, metricValue(t, p.PeersAdded.WithLabelValues("static")))
	require.Equal(t, 1.0, metricValue(t, p.Beacons.WithLabelValues("accepted")))
	require.Equal(t, 2.0, metricValue(t, p.Beacons.WithLabelValues("rejected")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestPeerManager_metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := new(Prometheus)
	p.Setup(reg)

	m := testManager(t, newMockRouter(t), testConfiguration())
	m.metrics = p

	ep := mustEndpoint(t, "tcp://[fe80::1%eth0]:9999")
	m.addOrReplace(ep, OriginDiscovered, nil)
	m.addOrReplace(mustEndpoint(t, "tcp://10.0.0.1:1"), OriginStatic, nil)
	require.Equal(t, 2.0, metricValue(t, p.Known))

	e := m.registry[ep]
	for i := uint32(0); i < m.conf.MaxDiscoveryAttempts; i++ {
		p.ConnectionAttempted()
		e.connecting = true
		m.finishAttempt(attemptResult{ep: ep, entry: e})
	}
	require.Equal(t, 1.0, metricValue(t, p.Known))
	require.Equal(t, 0.0, metricValue(t, p.Connecting))
	require.Equal(t, 3.0, metricValue(t, p.ConnectionFailures))
}

func TestPeerManager_metrics_stop(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := new(Prometheus)
	p.Setup(reg)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ep := NewEndpoint(TransportTCP, l.Addr().(*net.TCPAddr).AddrPort())
	require.NoError(t, l.Close())

	conf := testConfiguration()
	conf.StaticPeers = []Endpoint{ep}
	m := testManager(t, newMockRouter(t), conf)
	m.metrics = p

	// without a connect loop nobody collects the result
	m.sweep()
	require.Equal(t, 1.0, metricValue(t, p.Connecting))
	require.Equal(t, 1.0, metricValue(t, p.ConnectionAttempts))

	m.Stop()
	require.Equal(t, 0.0, metricValue(t, p.Connecting))
	require.Equal(t, 1.0, metricValue(t, p.ConnectionFailures))
}
