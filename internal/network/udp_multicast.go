package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// UDPMulticast tunnels raw AVTP payloads (Ethernet header included) over a
// UDP multicast group, for development and interop testing on hosts where
// opening a raw Ethernet socket isn't available or isn't desired. It
// follows the same read-loop-with-deadline shape the teacher's UDP server
// uses to make shutdown cooperative without a raw-socket-specific library.
type UDPMulticast struct {
	conn   *net.UDPConn
	group  *net.UDPAddr
	mac    [6]byte
	logger *slog.Logger

	frame  chan Frame
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// UDPMulticastConfig configures a UDPMulticast collaborator.
type UDPMulticastConfig struct {
	GroupAddress string // e.g. "239.255.1.1:17221"
	Interface    string // local interface name for multicast join, may be empty
	LocalMAC     [6]byte
	BufferSize   int
}

// NewUDPMulticast joins the configured multicast group and starts its
// receive loop.
func NewUDPMulticast(cfg UDPMulticastConfig, logger *slog.Logger) (*UDPMulticast, error) {
	group, err := net.ResolveUDPAddr("udp", cfg.GroupAddress)
	if err != nil {
		return nil, fmt.Errorf("network: resolve multicast group: %w", err)
	}

	var iface *net.Interface
	if cfg.Interface != "" {
		iface, err = net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("network: lookup interface %q: %w", cfg.Interface, err)
		}
	}

	conn, err := net.ListenMulticastUDP("udp", iface, group)
	if err != nil {
		return nil, fmt.Errorf("network: join multicast group %s: %w", cfg.GroupAddress, err)
	}

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 2048
	}
	if err := conn.SetReadBuffer(bufSize); err != nil {
		logger.Warn("failed to set UDP read buffer size", slog.Int("buffer_size", bufSize), slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &UDPMulticast{
		conn:   conn,
		group:  group,
		mac:    cfg.LocalMAC,
		logger: logger,
		frame:  make(chan Frame, 256),
		ctx:    ctx,
		cancel: cancel,
	}

	u.wg.Add(1)
	go u.receiveLoop(bufSize)
	return u, nil
}

func (u *UDPMulticast) LocalMAC() [6]byte { return u.mac }

func (u *UDPMulticast) Frames() <-chan Frame { return u.frame }

func (u *UDPMulticast) Send(ctx context.Context, data []byte) error {
	_, err := u.conn.WriteToUDP(data, u.group)
	return err
}

func (u *UDPMulticast) Close() error {
	u.cancel()
	err := u.conn.Close()
	u.wg.Wait()
	close(u.frame)
	return err
}

func (u *UDPMulticast) receiveLoop(bufSize int) {
	defer u.wg.Done()

	buf := make([]byte, bufSize)
	for {
		select {
		case <-u.ctx.Done():
			return
		default:
		}

		if err := u.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			u.logger.Error("failed to set UDP read deadline", slog.String("error", err.Error()))
			continue
		}

		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-u.ctx.Done():
				return
			default:
				u.logger.Error("failed to read multicast packet", slog.String("error", err.Error()))
				continue
			}
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case u.frame <- Frame{Data: data}:
		case <-u.ctx.Done():
			return
		default:
			u.logger.Warn("inbound frame queue full, dropping frame", slog.Int("size", n))
		}
	}
}
