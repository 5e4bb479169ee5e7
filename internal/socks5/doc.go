// Package socks5 implements the SOCKS5 wire protocol used by socksgate.
//
// It covers the server side of the handshake (greeting, method selection,
// CONNECT request parsing and replies) and a small client side used when
// chaining through an upstream SOCKS5 proxy. Frame encoding is delegated to
// github.com/txthinking/socks5; request parsing is done here so unsupported
// commands and address types can be answered with the right reply code
// instead of being dropped.
//
// Only "no authentication required", CONNECT, IPv4 and domain name
// destinations are supported.
package socks5
