package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
)

// Addr is a CONNECT destination. It is a closed set: the only
// implementations are IPv4Addr and DomainAddr.
type Addr interface {
	// Type returns the ATYP tag of the address.
	Type() byte
	// String returns the address in host:port form, suitable for dialing.
	String() string
	isAddr()
}

// IPv4Addr is an ATYP 0x01 destination.
type IPv4Addr struct {
	IP   [4]byte
	Port uint16
}

func (IPv4Addr) Type() byte { return ATYPIPv4 }

func (a IPv4Addr) String() string {
	return netip.AddrPortFrom(netip.AddrFrom4(a.IP), a.Port).String()
}

func (IPv4Addr) isAddr() {}

// DomainAddr is an ATYP 0x03 destination. Name is 1 to 255 bytes.
type DomainAddr struct {
	Name string
	Port uint16
}

func (DomainAddr) Type() byte { return ATYPDomain }

func (a DomainAddr) String() string {
	return net.JoinHostPort(a.Name, strconv.Itoa(int(a.Port)))
}

func (DomainAddr) isAddr() {}

// readAddr reads DST.ADDR and DST.PORT for the given address type.
func readAddr(r io.Reader, atyp byte) (Addr, error) {
	switch atyp {
	case ATYPIPv4:
		var b [4 + 2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("read ipv4 address: %w", err)
		}
		a := IPv4Addr{Port: binary.BigEndian.Uint16(b[4:])}
		copy(a.IP[:], b[:4])
		return a, nil
	case ATYPDomain:
		var l [1]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return nil, fmt.Errorf("read domain length: %w", err)
		}
		if l[0] == 0 {
			return nil, errEmptyDomain
		}
		b := make([]byte, int(l[0])+2)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("read domain address: %w", err)
		}
		n := int(l[0])
		name := string(b[:n])
		// An IPv6 literal in the domain field is still IPv6.
		if ip, err := netip.ParseAddr(name); err == nil && !ip.Is4() && !ip.Is4In6() {
			return nil, ErrAddressNotSupported
		}
		return DomainAddr{Name: name, Port: binary.BigEndian.Uint16(b[n:])}, nil
	default:
		// Includes ATYPIPv6.
		return nil, ErrAddressNotSupported
	}
}

// appendAddr appends the ATYP, DST.ADDR and DST.PORT encoding of a.
func appendAddr(b []byte, a Addr) []byte {
	switch a := a.(type) {
	case IPv4Addr:
		b = append(b, ATYPIPv4)
		b = append(b, a.IP[:]...)
		return binary.BigEndian.AppendUint16(b, a.Port)
	case DomainAddr:
		b = append(b, ATYPDomain, byte(len(a.Name)))
		b = append(b, a.Name...)
		return binary.BigEndian.AppendUint16(b, a.Port)
	default:
		panic(fmt.Sprintf("socks5: unexpected address type %T", a))
	}
}

// ParseAddr converts a host:port string into an Addr. IPv4 literals become
// IPv4Addr and anything that is not an IP literal becomes DomainAddr. IPv6
// literals are rejected with ErrAddressNotSupported.
func ParseAddr(address string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("parse port %q: %w", portStr, err)
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		if !ip.Is4() && !ip.Is4In6() {
			return nil, ErrAddressNotSupported
		}
		return IPv4Addr{IP: ip.Unmap().As4(), Port: uint16(port)}, nil
	}

	if host == "" || len(host) > 255 {
		return nil, fmt.Errorf("parse address %q: invalid domain length %d", address, len(host))
	}
	return DomainAddr{Name: host, Port: uint16(port)}, nil
}
