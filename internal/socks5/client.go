package socks5

import (
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// ClientDial performs the client side of the handshake on rw and asks the
// server to CONNECT to address. A non-success reply is returned as
// *ReplyError.
func ClientDial(rw io.ReadWriter, address string) error {
	addr, err := ParseAddr(address)
	if err != nil {
		return err
	}
	if err := ClientNegotiate(rw); err != nil {
		return err
	}
	return ClientConnect(rw, addr)
}

// ClientNegotiate offers only "no authentication required".
func ClientNegotiate(rw io.ReadWriter) error {
	if _, err := txsocks5.NewNegotiationRequest([]byte{MethodNoAuth}).WriteTo(rw); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}
	if neg.Method != MethodNoAuth {
		return fmt.Errorf("unsupported negotiation method: %#02x: %w", neg.Method, ErrNoAcceptableMethods)
	}
	return nil
}

// ClientConnect sends a CONNECT request for addr and reads the reply.
func ClientConnect(rw io.ReadWriter, addr Addr) error {
	if _, err := rw.Write(appendAddr([]byte{Version, CmdConnect, 0x00}, addr)); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != RepSuccess {
		return &ReplyError{Rep: rep.Rep, Msg: "connect " + addr.String()}
	}
	return nil
}
