package socks5

import (
	txsocks5 "github.com/txthinking/socks5"
)

// Version is the only protocol version accepted.
const Version = txsocks5.Ver

// Authentication methods.
const (
	MethodNoAuth       = txsocks5.MethodNone
	MethodNoAcceptable = byte(0xff)
)

// Commands.
const (
	CmdConnect      = txsocks5.CmdConnect
	CmdBind         = byte(0x02)
	CmdUDPAssociate = byte(0x03)
)

// Address types.
const (
	ATYPIPv4   = txsocks5.ATYPIPv4
	ATYPDomain = txsocks5.ATYPDomain
	ATYPIPv6   = txsocks5.ATYPIPv6
)

// Reply codes (RFC 1928 section 6).
const (
	RepSuccess             = txsocks5.RepSuccess
	RepGeneralFailure      = byte(0x01)
	RepNotAllowed          = byte(0x02)
	RepNetworkUnreachable  = byte(0x03)
	RepHostUnreachable     = txsocks5.RepHostUnreachable
	RepConnectionRefused   = txsocks5.RepConnectionRefused
	RepTTLExpired          = byte(0x06)
	RepCommandNotSupported = txsocks5.RepCommandNotSupported
	RepAddressNotSupported = byte(0x08)
)

// RepString returns a short, stable name for a reply code, suitable for logs
// and metric labels.
func RepString(rep byte) string {
	switch rep {
	case RepSuccess:
		return "success"
	case RepGeneralFailure:
		return "general_failure"
	case RepNotAllowed:
		return "not_allowed"
	case RepNetworkUnreachable:
		return "network_unreachable"
	case RepHostUnreachable:
		return "host_unreachable"
	case RepConnectionRefused:
		return "connection_refused"
	case RepTTLExpired:
		return "ttl_expired"
	case RepCommandNotSupported:
		return "command_not_supported"
	case RepAddressNotSupported:
		return "address_not_supported"
	default:
		return "unknown"
	}
}
