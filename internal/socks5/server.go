package socks5

import (
	"bytes"
	"fmt"
	"io"
)

// Greeting is the client's version identifier/method selection message.
type Greeting struct {
	Methods []byte
}

// Offers reports whether the client offered method.
func (g *Greeting) Offers(method byte) bool {
	return bytes.IndexByte(g.Methods, method) >= 0
}

// Request is a parsed CONNECT request.
type Request struct {
	Cmd  byte
	Addr Addr
}

// ReadGreeting reads VER, NMETHODS and exactly NMETHODS method bytes.
func ReadGreeting(r io.Reader) (*Greeting, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if hdr[0] != Version {
		return nil, fmt.Errorf("greeting version %d: %w", hdr[0], ErrUnsupportedVersion)
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, methods); err != nil {
		return nil, fmt.Errorf("read greeting methods: %w", err)
	}
	return &Greeting{Methods: methods}, nil
}

// ServerNegotiate reads the client greeting and answers it. Only "no
// authentication required" is accepted; if the client did not offer it the
// server answers 0xFF and ErrNoAcceptableMethods is returned.
func ServerNegotiate(rw io.ReadWriter) error {
	g, err := ReadGreeting(rw)
	if err != nil {
		return err
	}

	if !g.Offers(MethodNoAuth) {
		if err := WriteMethodSelection(rw, MethodNoAcceptable); err != nil {
			return err
		}
		return ErrNoAcceptableMethods
	}
	return WriteMethodSelection(rw, MethodNoAuth)
}

// ServerReadRequest reads a request. The command is checked before the
// address is read, so unsupported commands fail without consuming the
// address. Errors that should be answered with a reply are *ReplyError.
func ServerReadRequest(r io.Reader) (*Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if hdr[0] != Version {
		return nil, fmt.Errorf("request version %d: %w", hdr[0], ErrUnsupportedVersion)
	}

	cmd, atyp := hdr[1], hdr[3]
	if cmd != CmdConnect {
		return nil, fmt.Errorf("command %#02x: %w", cmd, ErrCommandNotSupported)
	}

	addr, err := readAddr(r, atyp)
	if err != nil {
		return nil, fmt.Errorf("address type %#02x: %w", atyp, err)
	}
	return &Request{Cmd: cmd, Addr: addr}, nil
}
