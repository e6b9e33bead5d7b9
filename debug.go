package p2p

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DebugMessage prints the registry and the live peers
func (n *Network) DebugMessage() string {
	var b strings.Builder

	m := n.Manager()
	if m == nil {
		return "network not running\n"
	}

	snap := m.Snapshot()
	fmt.Fprintf(&b, "\nKNOWN: (%d)\n", len(snap))
	for _, info := range snap {
		fmt.Fprintf(&b, "\t%s %s alive=%v connecting=%v failed=%d\n", info.Endpoint, info.Origin, info.Alive, info.Connecting, info.FailedAttempts)
	}

	peers := n.sw.Peers()
	fmt.Fprintf(&b, "\nONLINE: (%d, %d in, %d out)\n", len(peers), n.sw.peers.Incoming(), n.sw.peers.Outgoing())
	return b.String()
}

// DebugServer serves the debug pages and the prometheus metrics on the given address.
// The caller is responsible for shutting down the returned server.
func DebugServer(n *Network, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug", func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(n.DebugMessage()))
	})

	mux.HandleFunc("/stats", func(rw http.ResponseWriter, req *http.Request) {
		out := ""
		out += fmt.Sprintf("Channels\n")
		out += fmt.Sprintf("\tToNetwork: %d / %d\n", len(n.ToNetwork), cap(n.ToNetwork))
		out += fmt.Sprintf("\tFromNetwork: %d / %d\n", len(n.FromNetwork), cap(n.FromNetwork))
		out += fmt.Sprintf("\tdata: %d / %d\n", len(n.sw.data), cap(n.sw.data))
		out += fmt.Sprintf("\tcontrol: %d / %d\n", len(n.sw.control), cap(n.sw.control))

		slice := append([]*Peer(nil), n.sw.Peers()...)
		out += fmt.Sprintf("\nPeers (%d)\n", len(slice))
		sort.Slice(slice, func(i, j int) bool {
			return slice[i].connected.Before(slice[j].connected)
		})

		for _, p := range slice {
			m := p.GetMetrics()
			out += fmt.Sprintf("\t%s\n", p)
			out += fmt.Sprintf("\t\tsend: %d / %d\n", m.SendQueue, cap(p.send))
			out += fmt.Sprintf("\t\tMomentConnected: %s\n", m.Connected)
			out += fmt.Sprintf("\t\tIncoming: %v\n", m.Incoming)
			out += fmt.Sprintf("\t\tLastReceive: %s\n", m.LastReceive)
			out += fmt.Sprintf("\t\tLastSend: %s\n", m.LastSend)
			out += fmt.Sprintf("\t\tMPS Down: %.2f\n", m.MPSDown)
			out += fmt.Sprintf("\t\tMPS Up: %.2f\n", m.MPSUp)
			out += fmt.Sprintf("\t\tBPS Down: %.2f\n", m.BPSDown)
			out += fmt.Sprintf("\t\tBPS Up: %.2f\n", m.BPSUp)
			out += fmt.Sprintf("\t\tCapacity: %.2f\n", m.SendUsageRate)
		}

		rw.Write([]byte(out))
	})

	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			packageLogger.WithError(err).Error("Debug server stopped")
		}
	}()
	return srv
}
