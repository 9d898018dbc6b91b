package wg

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	errors "github.com/yago-123/punch-rendez/pkg/error"
)

// PortReader finds the port a WireGuard interface listens on, which is what a host behind NAT declares to the
// rendezvous server when the punched traffic is WireGuard
type PortReader struct {
	linkByName func(name string) (netlink.Link, error)
	device     func(name string) (*wgtypes.Device, error)
}

func NewPortReader() *PortReader {
	return &PortReader{
		linkByName: netlink.LinkByName,
		device:     deviceByName,
	}
}

// ListenPort returns the listen port of iface. The link must exist and be up
func (r *PortReader) ListenPort(iface string) (int, error) {
	link, err := r.linkByName(iface)
	if err != nil {
		return 0, errors.Wrap(errors.ErrWireGuardPort, fmt.Errorf("failed to get link %s: %w", iface, err))
	}

	if link.Attrs().Flags&net.FlagUp == 0 {
		return 0, errors.Wrap(errors.ErrWireGuardPort, fmt.Errorf("link %s is down", iface))
	}

	dev, err := r.device(iface)
	if err != nil {
		return 0, errors.Wrap(errors.ErrWireGuardPort, err)
	}

	if dev.ListenPort == 0 {
		return 0, errors.Wrap(errors.ErrWireGuardPort, fmt.Errorf("device %s has no listen port", iface))
	}

	return dev.ListenPort, nil
}

func deviceByName(name string) (*wgtypes.Device, error) {
	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open wgctrl client: %w", err)
	}
	defer client.Close()

	dev, err := client.Device(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", name, err)
	}

	return dev, nil
}
