package p2p

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports the peer manager's activity
type Prometheus struct {
	Known      prometheus.Gauge
	Connecting prometheus.Gauge

	PeersAdded         *prometheus.CounterVec
	ConnectionAttempts prometheus.Counter
	ConnectionFailures prometheus.Counter
	Beacons            *prometheus.CounterVec

	once sync.Once
}

var _ Metrics = (*Prometheus)(nil)

// Setup creates the collectors and registers them. Subsequent calls do nothing.
func (p *Prometheus) Setup(reg prometheus.Registerer) {
	p.once.Do(func() {

		ng := func(name, help string) prometheus.Gauge {
			g := prometheus.NewGauge(prometheus.GaugeOpts{
				Name: name,
				Help: help,
			})
			reg.MustRegister(g)
			return g
		}
		nc := func(name, help string) prometheus.Counter {
			c := prometheus.NewCounter(prometheus.CounterOpts{
				Name: name,
				Help: help,
			})
			reg.MustRegister(c)
			return c
		}
		ncv := func(name, help, label string) *prometheus.CounterVec {
			c := prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: name,
				Help: help,
			}, []string{label})
			reg.MustRegister(c)
			return c
		}

		p.Known = ng("overlay_p2p_peers_known", "Number of endpoints in the peer registry")
		p.Connecting = ng("overlay_p2p_peers_connecting", "Number of outbound connection attempts in flight")
		p.PeersAdded = ncv("overlay_p2p_peers_added", "Total number of endpoints added to the registry", "origin")
		p.ConnectionAttempts = nc("overlay_p2p_connection_attempts", "Total number of outbound connection attempts")
		p.ConnectionFailures = nc("overlay_p2p_connection_failures", "Total number of failed outbound connection attempts")
		p.Beacons = ncv("overlay_p2p_discovery_beacons", "Total number of discovery beacons received", "result")
	})
}

func (p *Prometheus) PeerAdded(origin PeerOrigin) {
	p.PeersAdded.WithLabelValues(origin.String()).Inc()
}

func (p *Prometheus) KnownPeers(count int) {
	p.Known.Set(float64(count))
}

func (p *Prometheus) ConnectionAttempted() {
	p.ConnectionAttempts.Inc()
	p.Connecting.Inc()
}

func (p *Prometheus) ConnectionFinished(success bool) {
	p.Connecting.Dec()
	if !success {
		p.ConnectionFailures.Inc()
	}
}

func (p *Prometheus) DiscoveryBeacon(accepted bool) {
	if accepted {
		p.Beacons.WithLabelValues("accepted").Inc()
	} else {
		p.Beacons.WithLabelValues("rejected").Inc()
	}
}
