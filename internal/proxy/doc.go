// Package proxy implements the socksgate listener side: the SOCKS5 server
// (accept loop, per-connection session state machine) and the shared
// connection plumbing it uses, such as keepalive listeners and the
// bidirectional relay.
package proxy
