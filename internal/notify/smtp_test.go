package notify

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relaySession records what one client did against the fake relay.
type relaySession struct {
	tls         bool
	startTLS    bool
	authLines   []string
	authOverTLS bool
	mailFrom    string
	rcpts       []string
	data        string
	quit        bool
}

type fakeRelay struct {
	session    relaySession
	rejectAuth bool
	offerStart bool
	serverTLS  *tls.Config
}

func selfSignedTLS(t *testing.T) (server *tls.Config, client *tls.Config) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "relay.test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server = &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}}}
	client = &tls.Config{RootCAs: pool}
	return server, client
}

// start accepts a single connection on ln and returns a channel closed when
// the session is over.
func (f *fakeRelay) start(t *testing.T, ln net.Listener) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, f.session.tls = conn.(*tls.Conn)
		f.serve(conn)
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})
	return done
}

func (f *fakeRelay) serve(conn net.Conn) {
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 relay.test ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			tp.PrintfLine("250-relay.test")
			if f.offerStart && !f.session.tls {
				tp.PrintfLine("250 STARTTLS")
			} else {
				tp.PrintfLine("250 AUTH PLAIN")
			}
		case "STARTTLS":
			tp.PrintfLine("220 2.0.0 Ready to start TLS")
			tlsConn := tls.Server(conn, f.serverTLS)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			conn = tlsConn
			tp = textproto.NewConn(conn)
			f.session.tls = true
			f.session.startTLS = true
		case "AUTH":
			f.session.authLines = append(f.session.authLines, line)
			f.session.authOverTLS = f.session.tls
			if f.rejectAuth {
				tp.PrintfLine("535 5.7.8 Authentication credentials invalid")
				continue
			}
			tp.PrintfLine("235 2.7.0 Accepted")
		case "MAIL":
			f.session.mailFrom = line
			tp.PrintfLine("250 2.1.0 OK")
		case "RCPT":
			f.session.rcpts = append(f.session.rcpts, line)
			tp.PrintfLine("250 2.1.5 OK")
		case "DATA":
			tp.PrintfLine("354 Go ahead")
			b, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			f.session.data = string(b)
			tp.PrintfLine("250 2.0.0 Queued")
		case "QUIT":
			f.session.quit = true
			tp.PrintfLine("221 2.0.0 Bye")
			return
		default:
			tp.PrintfLine("502 5.5.1 Unrecognized command")
		}
	}
}

func listenerPort(ln net.Listener) int {
	return ln.Addr().(*net.TCPAddr).Port
}

func plainAuthLine(user, pass string) string {
	return "AUTH PLAIN " + base64.StdEncoding.EncodeToString([]byte("\x00"+user+"\x00"+pass))
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSMTPTransport_ImplicitTLS(t *testing.T) {
	serverTLS, clientTLS := selfSignedTLS(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", serverTLS)
	require.NoError(t, err)

	relay := &fakeRelay{}
	done := relay.start(t, ln)

	tr := SMTPTransport{
		Host:      "127.0.0.1",
		Port:      listenerPort(ln),
		User:      "relay@x.com",
		Pass:      "app-password",
		TLSConfig: clientTLS,
	}
	err = tr.Deliver(testContext(t), "relay@x.com", []string{"notify@x.com"}, []byte("Subject: hi\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	<-done

	s := relay.session
	assert.True(t, s.tls)
	assert.False(t, s.startTLS)
	assert.Equal(t, []string{plainAuthLine("relay@x.com", "app-password")}, s.authLines)
	assert.True(t, s.authOverTLS)
	assert.Equal(t, "MAIL FROM:<relay@x.com>", s.mailFrom)
	assert.Equal(t, []string{"RCPT TO:<notify@x.com>"}, s.rcpts)
	assert.Contains(t, s.data, "Subject: hi")
	assert.True(t, s.quit)
}

func TestSMTPTransport_StartTLS(t *testing.T) {
	serverTLS, clientTLS := selfSignedTLS(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	relay := &fakeRelay{offerStart: true, serverTLS: serverTLS}
	done := relay.start(t, ln)

	tr := SMTPTransport{
		Host:      "127.0.0.1",
		Port:      listenerPort(ln),
		StartTLS:  true,
		User:      "relay@x.com",
		Pass:      "app-password",
		TLSConfig: clientTLS,
	}
	err = tr.Deliver(testContext(t), "relay@x.com", []string{"notify@x.com"}, []byte("Subject: hi\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	<-done

	s := relay.session
	assert.True(t, s.startTLS)
	assert.True(t, s.authOverTLS)
	assert.Equal(t, []string{plainAuthLine("relay@x.com", "app-password")}, s.authLines)
	assert.Equal(t, []string{"RCPT TO:<notify@x.com>"}, s.rcpts)
	assert.True(t, s.quit)
}

func TestSMTPTransport_AuthRejected(t *testing.T) {
	serverTLS, clientTLS := selfSignedTLS(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", serverTLS)
	require.NoError(t, err)

	relay := &fakeRelay{rejectAuth: true}
	done := relay.start(t, ln)

	tr := SMTPTransport{
		Host:      "127.0.0.1",
		Port:      listenerPort(ln),
		User:      "relay@x.com",
		Pass:      "wrong",
		TLSConfig: clientTLS,
	}
	err = tr.Deliver(testContext(t), "relay@x.com", []string{"notify@x.com"}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535")
	<-done

	assert.Empty(t, relay.session.rcpts)
	assert.Empty(t, relay.session.data)
}

func TestSMTPTransport_UntrustedCertificate(t *testing.T) {
	serverTLS, _ := selfSignedTLS(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", serverTLS)
	require.NoError(t, err)

	relay := &fakeRelay{}
	done := relay.start(t, ln)

	tr := SMTPTransport{Host: "127.0.0.1", Port: listenerPort(ln), User: "u", Pass: "p"}
	err = tr.Deliver(testContext(t), "u@x.com", []string{"notify@x.com"}, []byte("x"))
	require.Error(t, err)
	ln.Close()
	<-done

	assert.Empty(t, relay.session.authLines)
}

func TestSMTPSender_DeliversToOneRecipientOverTLS(t *testing.T) {
	serverTLS, clientTLS := selfSignedTLS(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	relay := &fakeRelay{offerStart: true, serverTLS: serverTLS}
	done := relay.start(t, ln)

	s := &SMTPSender{
		User:    "relay@x.com",
		Pass:    "app-password",
		Subject: "Your New Google Workspace Account Details",
		Transport: SMTPTransport{
			Host:      "127.0.0.1",
			Port:      listenerPort(ln),
			StartTLS:  true,
			User:      "relay@x.com",
			Pass:      "app-password",
			TLSConfig: clientTLS,
		},
		Logger: zerolog.Nop(),
	}
	require.NoError(t, s.Send(testContext(t), sampleNotification()))
	<-done

	assert.True(t, relay.session.authOverTLS)
	assert.Equal(t, []string{"RCPT TO:<notify@x.com>"}, relay.session.rcpts)
	assert.Contains(t, relay.session.data, "Subject: Your New Google Workspace Account Details")
}
