// Package dialer provides the outbound connectors used by socksgate.
//
// Dialers implement a small interface (DialContext) and are used by the
// SOCKS5 server to reach CONNECT destinations, either directly or through an
// upstream SOCKS5 proxy.
package dialer
