package transport

import (
	"errors"
	"fmt"
	"net"
)

// DiscoverInterface ищет интерфейс, которому принадлежит адрес локального хоста.
// На машинах с несколькими сетями берется первый совпавший интерфейс.
// Интерфейс, адреса которого не удалось получить, пропускается, ошибка уходит в report.
func DiscoverInterface(src InterfaceSource, report func(error)) (*net.Interface, error) {
	const op = "transport.DiscoverInterface"

	hostIPs, err := src.LocalHostAddrs()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ifaces, err := src.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("%s: list interfaces: %w", op, err)
	}

	for i := range ifaces {
		addrs, err := src.Addrs(ifaces[i])
		if err != nil {
			if report != nil {
				report(fmt.Errorf("%s: addresses of %s: %w", op, ifaces[i].Name, err))
			}
			continue
		}
		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil {
				continue
			}
			for _, hostIP := range hostIPs {
				if ip.Equal(hostIP) {
					return &ifaces[i], nil
				}
			}
		}
	}

	return nil, ErrNoMatchingInterface
}

// selectInterface выбирает интерфейс для членства в группе.
// Ошибки сети отдаются в report, при этом всегда возвращается значение по умолчанию.
// nil означает выбор интерфейса ядром.
func selectInterface(src InterfaceSource, discover bool, defaultName string, report func(error)) *net.Interface {
	if discover {
		iface, err := DiscoverInterface(src, report)
		if err == nil {
			return iface
		}
		if !errors.Is(err, ErrNoMatchingInterface) {
			report(err)
		}
	}

	if defaultName == "" {
		return nil
	}

	iface, err := src.InterfaceByName(defaultName)
	if err != nil {
		report(fmt.Errorf("transport: default interface %q: %w", defaultName, err))
		return nil
	}
	return iface
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	case *net.UDPAddr:
		return v.IP
	}
	return nil
}
