package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"udpchat/internal/config"
	"udpchat/internal/util/logger/sl"

	"golang.org/x/net/ipv4"
)

type Mode string

const (
	ModeMulticast Mode = config.ModeMulticast
	ModeBroadcast Mode = config.ModeBroadcast
	ModeUnicast   Mode = config.ModeUnicast
)

// Selector решает при создании, куда отправлять датаграммы и на каком интерфейсе слушать группу.
// После создания не меняется.
type Selector struct {
	mode     Mode
	endpoint *net.UDPAddr
	iface    *net.Interface
	ttl      int
	log      *slog.Logger
}

// NewSelector разбирает адрес назначения и для multicast выбирает интерфейс.
// Ошибки поиска интерфейса уходят в report, конструктор при этом не падает.
func NewSelector(cfg config.Transport, src InterfaceSource, report func(error), log *slog.Logger) (*Selector, error) {
	const op = "transport.NewSelector"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if src == nil {
		src = SystemInterfaces{}
	}
	if report == nil {
		report = func(error) {}
	}
	if log == nil {
		log = slog.Default()
	}

	endpoint, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidEndpoint, err)
	}

	s := &Selector{
		mode:     Mode(cfg.Mode),
		endpoint: endpoint,
		ttl:      cfg.MulticastTTL,
		log:      log.With(slog.String("transport", cfg.Mode)),
	}

	if s.mode == ModeMulticast {
		if !endpoint.IP.IsMulticast() {
			return nil, fmt.Errorf("%s: %w: %s is not a multicast group", op, ErrInvalidEndpoint, endpoint.IP)
		}
		s.iface = selectInterface(src, cfg.DiscoverInterface, cfg.DefaultInterface, report)
		s.log.Info("Using network interface", slog.String("interface", ifaceName(s.iface)))
	}

	return s, nil
}

func (s *Selector) Mode() Mode {
	return s.mode
}

// Endpoint возвращает копию адреса назначения
func (s *Selector) Endpoint() *net.UDPAddr {
	addr := *s.endpoint
	addr.IP = append(net.IP(nil), s.endpoint.IP...)
	return &addr
}

// Interface - интерфейс для группы; nil вне multicast режима или когда выбор за ядром
func (s *Selector) Interface() *net.Interface {
	return s.iface
}

// Dial открывает исходящий сокет на эфемерном порту. Закрывает его вызывающий.
func (s *Selector) Dial() (*net.UDPConn, error) {
	const op = "transport.Dial"

	conn, err := net.DialUDP("udp4", nil, s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.mode != ModeMulticast {
		return conn, nil
	}

	p := ipv4.NewPacketConn(conn)
	if s.ttl > 0 {
		if err := p.SetMulticastTTL(s.ttl); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: set multicast ttl: %w", op, err)
		}
	}
	if s.iface != nil {
		if err := p.SetMulticastInterface(s.iface); err != nil {
			s.log.Warn("Failed to set outgoing multicast interface",
				slog.String("interface", s.iface.Name),
				sl.Err(err),
			)
		}
	}
	return conn, nil
}

// Bind открывает принимающий сокет на фиксированном порту всех адресов.
// Порт делится между слушателями только в multicast и broadcast режимах.
func (s *Selector) Bind(ctx context.Context) (*net.UDPConn, error) {
	const op = "transport.Bind"

	lc := listenConfig(s.mode != ModeUnicast)
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("", strconv.Itoa(s.endpoint.Port)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("%s: %w", op, ErrNotUDPConn)
	}
	return conn, nil
}

// Membership - членство (группа, интерфейс) принимающего сокета
type Membership struct {
	Group     net.IP
	Interface *net.Interface
	pc        *ipv4.PacketConn
}

// Join вступает в группу на выбранном интерфейсе. Вне multicast режима возвращает nil, nil.
func (s *Selector) Join(conn *net.UDPConn) (*Membership, error) {
	const op = "transport.Join"

	if s.mode != ModeMulticast {
		return nil, nil
	}

	m := &Membership{
		Group:     s.endpoint.IP,
		Interface: s.iface,
		pc:        ipv4.NewPacketConn(conn),
	}
	if err := m.pc.JoinGroup(m.Interface, &net.UDPAddr{IP: m.Group}); err != nil {
		return nil, fmt.Errorf("%s: group %s on %s: %w", op, m.Group, ifaceName(m.Interface), err)
	}

	s.log.Info("Joined multicast group",
		slog.String("group", m.Group.String()),
		slog.String("interface", ifaceName(m.Interface)),
	)
	return m, nil
}

// Leave выходит из группы. Сокет должен быть еще открыт.
func (m *Membership) Leave() error {
	if m == nil {
		return nil
	}
	if err := m.pc.LeaveGroup(m.Interface, &net.UDPAddr{IP: m.Group}); err != nil {
		return fmt.Errorf("transport.Leave: group %s: %w", m.Group, err)
	}
	return nil
}

func ifaceName(iface *net.Interface) string {
	if iface == nil {
		return "default"
	}
	return iface.Name
}
