package p2p

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
)

const secureALPN = "overlay-p2p"

// streamPreface is written by the dialing side as soon as the session stream is open.
// quic only announces a stream to the remote once data has been sent on it.
var streamPreface = []byte("OVL1")

// secureTransport is the quic endpoint of the node. A single udp socket serves both
// the listener and all outbound dials.
type secureTransport struct {
	conn     *net.UDPConn
	tr       *quic.Transport
	listener *quic.Listener

	serverTLS *tls.Config
	clientTLS *tls.Config
	quicConf  *quic.Config
	timeout   time.Duration
}

// newSecureTransport binds the udp socket and starts listening for quic connections
func newSecureTransport(conf *Configuration, id RouterID) (*secureTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(conf.BindIP, strconv.Itoa(int(conf.SecurePort))))
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve quic address")
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to bind quic socket on %s", laddr)
	}

	cert, err := selfSignedCert(id)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "unable to create certificate")
	}

	st := new(secureTransport)
	st.conn = conn
	st.timeout = conf.DialTimeout
	st.serverTLS = &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{secureALPN},
		MinVersion:   tls.VersionTLS13,
	}
	st.clientTLS = &tls.Config{
		// TODO: verify the remote certificate against the router id announced in its beacon
		InsecureSkipVerify: true,
		NextProtos:         []string{secureALPN},
		MinVersion:         tls.VersionTLS13,
	}
	st.quicConf = &quic.Config{
		MaxIncomingStreams:      conf.QuicMaxBidiStreams,
		MaxIncomingUniStreams:   -1,
		EnableDatagrams:         false,
		MaxIdleTimeout:          conf.QuicIdleTimeout,
		KeepAlivePeriod:         conf.QuicKeepAlive,
		DisablePathMTUDiscovery: false,
	}

	st.tr = &quic.Transport{Conn: conn}
	st.listener, err = st.tr.Listen(st.serverTLS, st.quicConf)
	if err != nil {
		st.tr.Close()
		conn.Close()
		return nil, errors.Wrap(err, "unable to create quic listener")
	}
	return st, nil
}

// Addr is the local address of the shared udp socket
func (st *secureTransport) Addr() net.Addr {
	return st.conn.LocalAddr()
}

// Dial connects to a remote and opens the session stream
func (st *secureTransport) Dial(ctx context.Context, ep Endpoint) (*quicStream, error) {
	if st.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.timeout)
		defer cancel()
	}

	conn, err := st.tr.Dial(ctx, ep.UDPAddr(), st.clientTLS, st.quicConf)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "stream setup failed")
		return nil, errors.Wrap(err, "unable to open stream")
	}
	if _, err := stream.Write(streamPreface); err != nil {
		conn.CloseWithError(0, "stream setup failed")
		return nil, errors.Wrap(err, "unable to write preface")
	}
	return &quicStream{Stream: stream, conn: conn}, nil
}

// Accept waits for the next remote to connect. The stream is set up by acceptStream.
func (st *secureTransport) Accept(ctx context.Context) (quic.Connection, error) {
	return st.listener.Accept(ctx)
}

// acceptStream waits for the remote to open its session stream
func (st *secureTransport) acceptStream(ctx context.Context, conn quic.Connection) (*quicStream, error) {
	if st.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.timeout)
		defer cancel()
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "no stream")
		return nil, errors.Wrap(err, "unable to accept stream")
	}

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetReadDeadline(deadline)
	}
	preface := make([]byte, len(streamPreface))
	if _, err := io.ReadFull(stream, preface); err != nil {
		conn.CloseWithError(0, "no preface")
		return nil, errors.Wrap(err, "unable to read preface")
	}
	if !bytes.Equal(preface, streamPreface) {
		conn.CloseWithError(0, "bad preface")
		return nil, errors.Errorf("invalid preface %x", preface)
	}
	stream.SetReadDeadline(time.Time{})
	return &quicStream{Stream: stream, conn: conn}, nil
}

// Close shuts down the listener and the udp socket
func (st *secureTransport) Close() error {
	st.listener.Close()
	err := st.tr.Close()
	st.conn.Close()
	return err
}

// quicStream is the session stream of a quic connection. A session owns its
// connection, closing the stream closes the connection.
type quicStream struct {
	quic.Stream
	conn quic.Connection
}

var _ PeerConn = (*quicStream)(nil)

func (qs *quicStream) Close() error {
	qs.Stream.CancelRead(0)
	qs.Stream.Close()
	return qs.conn.CloseWithError(0, "")
}

// RemoteAddr is the address of the remote's udp socket
func (qs *quicStream) RemoteAddr() net.Addr {
	return qs.conn.RemoteAddr()
}

// selfSignedCert creates an ephemeral certificate carrying the router id as common name
func selfSignedCert(id RouterID) (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: id.String()},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
