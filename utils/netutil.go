package utils

import (
	"errors"
	"fmt"
	"net"
)

var ErrNoIPv4 = errors.New("no IPv4 address")

// IfaceByName returns the named interface if it is up.
func IfaceByName(name string) (*net.Interface, error) {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	if (ifc.Flags & net.FlagUp) == 0 {
		return nil, fmt.Errorf("interface %s is down", name)
	}
	return ifc, nil
}

func FirstIPv4Addr(name string) (net.IP, error) {
	ifc, err := IfaceByName(name)
	if err != nil {
		return nil, err
	}
	ip := firstIPv4(ifc)
	if ip == nil {
		return nil, fmt.Errorf("%w on interface %s", ErrNoIPv4, name)
	}
	return ip, nil
}

// HostIPv4 returns the first IPv4 address of an up, non-loopback interface:
// the address LAN clients can reach the device on.
func HostIPv4() (net.IP, error) {
	ifcs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifcs {
		ifc := &ifcs[i]
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ip := firstIPv4(ifc); ip != nil {
			return ip, nil
		}
	}
	return nil, ErrNoIPv4
}

func firstIPv4(ifc *net.Interface) net.IP {
	addrs, err := ifc.Addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		switch v := a.(type) {
		case *net.IPNet:
			if ip := v.IP.To4(); ip != nil {
				return ip
			}
		}
	}
	return nil
}
