package socks5

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	txsocks5 "github.com/txthinking/socks5"
)

var (
	// ErrUnsupportedVersion is returned when a greeting or request does not
	// start with version 5. No reply is sent for it.
	ErrUnsupportedVersion = errors.New("socks5: unsupported version")

	// ErrNoAcceptableMethods is returned after answering a greeting that did
	// not offer "no authentication required" with method 0xFF.
	ErrNoAcceptableMethods = errors.New("socks5: no acceptable authentication methods")

	// ErrCommandNotSupported is returned for BIND, UDP ASSOCIATE and unknown
	// commands.
	ErrCommandNotSupported = &ReplyError{Rep: RepCommandNotSupported}

	// ErrAddressNotSupported is returned for IPv6 and unknown address types.
	ErrAddressNotSupported = &ReplyError{Rep: RepAddressNotSupported}

	errEmptyDomain = &ReplyError{Rep: RepGeneralFailure, Msg: "empty domain name"}
)

// ReplyError is a request failure that maps to a specific reply code, either
// one this server sends or one received from an upstream proxy.
type ReplyError struct {
	Rep byte
	Msg string
}

func (e *ReplyError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("socks5: %s: %s", RepString(e.Rep), e.Msg)
	}
	return "socks5: " + RepString(e.Rep)
}

// ReplyCode maps a connect error to the reply code sent to the client.
func ReplyCode(err error) byte {
	if err == nil {
		return RepSuccess
	}

	var rerr *ReplyError
	if errors.As(err, &rerr) {
		return rerr.Rep
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return RepHostUnreachable
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return RepConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH):
		return RepNetworkUnreachable
	case errors.Is(err, syscall.EHOSTUNREACH):
		return RepHostUnreachable
	case errors.Is(err, context.DeadlineExceeded):
		return RepHostUnreachable
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return RepHostUnreachable
	}

	return RepGeneralFailure
}

var (
	zeroIPv4 = []byte{0x00, 0x00, 0x00, 0x00}
	zeroPort = []byte{0x00, 0x00}
)

// WriteReply writes a reply with the given code. The bound address and port
// are always 0.0.0.0:0.
func WriteReply(w io.Writer, rep byte) error {
	if _, err := txsocks5.NewReply(rep, ATYPIPv4, zeroIPv4, zeroPort).WriteTo(w); err != nil {
		return fmt.Errorf("write %s reply: %w", RepString(rep), err)
	}
	return nil
}

// WriteMethodSelection writes the server's method selection message.
func WriteMethodSelection(w io.Writer, method byte) error {
	if _, err := txsocks5.NewNegotiationReply(method).WriteTo(w); err != nil {
		return fmt.Errorf("write method selection: %w", err)
	}
	return nil
}
