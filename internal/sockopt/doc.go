// Package sockopt sets listener socket options through net.ListenConfig
// Control hooks.
//
// On Linux, the BSDs and macOS, ReusePort enables SO_REUSEADDR and
// SO_REUSEPORT so several socksgate processes can share one listen address.
// On other platforms it returns an error.
package sockopt
