package p2p

import (
	"crypto/x509"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_selfSignedCert(t *testing.T) {
	id, err := NewRouterID()
	require.NoError(t, err)

	cert, err := selfSignedCert(id)
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	require.Equal(t, id.String(), parsed.Subject.CommonName)
}

func Test_newSecureTransport_bindFailure(t *testing.T) {
	conf := testConfiguration()
	id, err := NewRouterID()
	require.NoError(t, err)

	st, err := newSecureTransport(conf, id)
	require.NoError(t, err)
	defer st.Close()

	// the port is taken
	taken := *conf
	taken.SecurePort = st.Addr().(*net.UDPAddr).AddrPort().Port()
	_, err = newSecureTransport(&taken, id)
	require.Error(t, err)

	_, err = NewPeerManager(newMockRouter(t), &taken)
	require.Error(t, err)
}
