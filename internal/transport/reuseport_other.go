//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package transport

import "net"

// listenConfig без SO_REUSEPORT: второй слушатель на том же порту получит ошибку bind
func listenConfig(bool) net.ListenConfig {
	return net.ListenConfig{}
}
