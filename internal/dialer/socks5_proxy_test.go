package dialer

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/txthinking/socks5"

	internalsocks5 "github.com/die-net/socksgate/internal/socks5"
	"github.com/die-net/socksgate/internal/testutil"
)

func TestSOCKS5ProxyDialerDialSuccess(t *testing.T) {
	tests := []struct {
		name   string
		target func(echo net.Addr) string
	}{
		{name: "ip", target: func(echo net.Addr) string { return echo.String() }},
		{name: "name_passed_through", target: func(echo net.Addr) string {
			_, port, _ := net.SplitHostPort(echo.String())
			return net.JoinHostPort("localhost", port)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)
			target := tt.target(echoLn.Addr())

			gotAddr := make(chan string, 1)
			upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
				_ = handleSOCKS5Connect(ctx, c, gotAddr)
			})

			f := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second}, upLn.Addr().String())

			conn, err := f.DialContext(ctx, "tcp", target)
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			if got := <-gotAddr; got != target {
				t.Fatalf("upstream asked for %q want %q", got, target)
			}

			testutil.AssertEcho(t, conn, conn, []byte("hello"))

			_ = conn.Close()
			waitUp()
		})
	}
}

func TestSOCKS5ProxyDialerDialContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	lc := net.ListenConfig{}
	upLn, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer upLn.Close()

	// Accepts and never answers the greeting.
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		c, err := upLn.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		cancel()
		_, _ = io.Copy(io.Discard, c)
	}()

	f := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upLn.Addr().String())

	_, err = f.DialContext(ctx, "tcp", "127.0.0.1:1")
	if err == nil {
		t.Fatalf("expected error")
	}

	_ = upLn.Close()
	<-acceptDone
}

func TestSOCKS5ProxyDialerUpstreamReply(t *testing.T) {
	for _, rep := range []byte{socks5.RepConnectionRefused, socks5.RepHostUnreachable, internalsocks5.RepNotAllowed} {
		t.Run(internalsocks5.RepString(rep), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
				if _, err := socks5.NewNegotiationRequestFrom(c); err != nil {
					return
				}
				if _, err := socks5.NewNegotiationReply(socks5.MethodNone).WriteTo(c); err != nil {
					return
				}
				req, err := socks5.NewRequestFrom(c)
				if err != nil {
					return
				}
				if req.Cmd != socks5.CmdConnect {
					return
				}
				_, _ = socks5.NewReply(rep, socks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c)
			})

			f := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upLn.Addr().String())

			_, err := f.DialContext(ctx, "tcp", "127.0.0.1:1")
			if got := internalsocks5.ReplyCode(err); got != rep {
				t.Fatalf("err=%v reply %#02x want %#02x", err, got, rep)
			}

			waitUp()
		})
	}
}

func TestSOCKS5ProxyDialerUnreachableUpstream(t *testing.T) {
	f := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, testutil.ClosedPortAddr(t))

	_, err := f.DialContext(context.Background(), "tcp", "example.com:80")
	if got := internalsocks5.ReplyCode(err); got != internalsocks5.RepConnectionRefused {
		t.Fatalf("err=%v reply %#02x", err, got)
	}

	if _, err := f.DialContext(context.Background(), "udp", "example.com:80"); err == nil {
		t.Fatal("expected udp to be rejected")
	}
}

// handleSOCKS5Connect is a minimal upstream built from library primitives. It
// reports the requested address on gotAddr and relays to it.
func handleSOCKS5Connect(ctx context.Context, c net.Conn, gotAddr chan<- string) error {
	if _, err := socks5.NewNegotiationRequestFrom(c); err != nil {
		return err
	}
	if _, err := socks5.NewNegotiationReply(socks5.MethodNone).WriteTo(c); err != nil {
		return err
	}

	req, err := socks5.NewRequestFrom(c)
	if err != nil {
		return err
	}
	gotAddr <- req.Address()
	if req.Cmd != socks5.CmdConnect {
		_, _ = socks5.NewReply(socks5.RepCommandNotSupported, socks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c)
		return nil
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", req.Address())
	if err != nil {
		_, _ = socks5.NewReply(socks5.RepHostUnreachable, socks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c)
		return nil
	}
	defer dst.Close()

	if _, err := socks5.NewReply(socks5.RepSuccess, socks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c); err != nil {
		return err
	}

	go func() {
		_, _ = io.Copy(dst, c)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)

	return nil
}
