package transport

import (
	"fmt"
	"net"
	"os"
)

// InterfaceSource абстрагирует перечисление сетевых интерфейсов, чтобы в тестах его можно было подменить
type InterfaceSource interface {
	Interfaces() ([]net.Interface, error)
	Addrs(iface net.Interface) ([]net.Addr, error)
	InterfaceByName(name string) (*net.Interface, error)
	// LocalHostAddrs возвращает адреса, в которые резолвится имя хоста
	LocalHostAddrs() ([]net.IP, error)
}

// SystemInterfaces - InterfaceSource поверх пакета net
type SystemInterfaces struct{}

func (SystemInterfaces) Interfaces() ([]net.Interface, error) {
	return net.Interfaces()
}

func (SystemInterfaces) Addrs(iface net.Interface) ([]net.Addr, error) {
	return iface.Addrs()
}

func (SystemInterfaces) InterfaceByName(name string) (*net.Interface, error) {
	return net.InterfaceByName(name)
}

func (SystemInterfaces) LocalHostAddrs() ([]net.IP, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("resolve local host %q: %w", host, err)
	}
	return ips, nil
}
