package notify

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

const defaultDialTimeout = 15 * time.Second

// Transport delivers an already built message.
type Transport interface {
	Deliver(ctx context.Context, from string, to []string, msg []byte) error
}

// SMTPTransport talks to a mail relay. Without StartTLS the connection is TLS
// from the first byte (port 465 style).
type SMTPTransport struct {
	Host     string
	Port     int
	StartTLS bool
	User     string
	Pass     string

	// TLSConfig overrides the client TLS settings. ServerName defaults to Host.
	TLSConfig *tls.Config
}

func (t SMTPTransport) tlsConfig() *tls.Config {
	if t.TLSConfig == nil {
		return &tls.Config{ServerName: t.Host}
	}
	c := t.TLSConfig.Clone()
	if c.ServerName == "" {
		c.ServerName = t.Host
	}
	return c
}

func (t SMTPTransport) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	tlsConfig := t.tlsConfig()

	dialer := &net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if !t.StartTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if t.StartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return err
		}
	}

	if err := client.Auth(smtp.PlainAuth("", t.User, t.Pass, t.Host)); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, r := range to {
		if err := client.Rcpt(r); err != nil {
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}
