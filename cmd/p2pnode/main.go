package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	p2p "github.com/whosoup/overlay-p2p"
)

type options struct {
	Name          string        `short:"n" long:"name" description:"Name of the node used in logs" default:"p2pnode"`
	Peers         []string      `short:"p" long:"peer" description:"Static peer to connect to, e.g. tcp://10.0.0.1:9651 or quic://[fe80::1%eth0]:9651"`
	Seed          string        `long:"seed" description:"URL of a list of static peers, one endpoint per line"`
	BindIP        string        `long:"bind" description:"IP address to bind listeners and outgoing connections to"`
	StreamPort    uint16        `long:"tcp-port" description:"Port for incoming tcp connections" default:"9651"`
	SecurePort    uint16        `long:"quic-port" description:"UDP port for quic connections" default:"9651"`
	DiscoveryPort uint16        `long:"discovery-port" description:"UDP port for link local discovery" default:"9650"`
	NoDiscovery   bool          `long:"no-discovery" description:"Disable link local discovery"`
	Interval      time.Duration `long:"connect-interval" description:"Interval to check for dead peers" default:"5s"`
	LogLevel      string        `long:"loglevel" description:"Logging level {trace, debug, info, warn, error}" default:"info"`
	LogFile       string        `long:"logfile" description:"Also write logs to this rotated file"`
	Debug         string        `long:"debug" description:"Address to serve debug pages and metrics on, e.g. localhost:8070"`
	NoPrometheus  bool          `long:"no-prometheus" description:"Disable prometheus metrics"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	logs, err := p2p.SetupLogging(opts.LogLevel, opts.LogFile)
	if err != nil {
		return err
	}
	defer logs.Close()

	conf := p2p.DefaultP2PConfiguration()
	conf.NodeName = opts.Name
	conf.SeedURL = opts.Seed
	conf.BindIP = opts.BindIP
	conf.StreamPort = opts.StreamPort
	conf.SecurePort = opts.SecurePort
	conf.DiscoveryPort = opts.DiscoveryPort
	conf.DisableDiscovery = opts.NoDiscovery
	conf.ConnectInterval = opts.Interval
	conf.EnablePrometheus = !opts.NoPrometheus
	conf.LogLevel = opts.LogLevel
	conf.LogPath = opts.LogFile

	for _, raw := range opts.Peers {
		ep, err := p2p.ParseEndpoint(raw)
		if err != nil {
			return fmt.Errorf("invalid peer: %v", err)
		}
		conf.StaticPeers = append(conf.StaticPeers, ep)
	}

	n, err := p2p.NewNetwork(conf)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Stop()

	if opts.Debug != "" {
		srv := p2p.DebugServer(n, opts.Debug)
		defer srv.Shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case pp := <-n.FromNetwork:
			fmt.Printf("%s: %s\n", pp.Peer, pp.Parcel)
		}
	}
}
