package network

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/guni973/ace/libcontainer/configs"
)

// ErrInterfaceNameCollision reports that the host veth name derived for a
// container is already taken, either by another running container with a
// colliding derived name or by an unrelated host interface.
var ErrInterfaceNameCollision = errors.New("derived interface name already exists")

// The interface name inside the container. Renaming the moved peer keeps
// userspace expectations (dhcp clients, shell scripts) working.
const containerIfName = "eth0"

// Endpoint records what Attach created, so Detach can undo exactly that.
type Endpoint struct {
	HostVeth string `json:"host_veth"`
	PeerVeth string `json:"peer_veth"`
	Bridge   string `json:"bridge"`
	Address  string `json:"address"`
}

// EnsureBridge creates the named bridge if it does not exist, assigns it the
// gateway address and brings it up. Creation is check-then-create: a
// concurrent engine invocation winning the race is treated as success.
func EnsureBridge(name, addrCIDR string, mtu int) error {
	la := netlink.NewLinkAttrs()
	la.Name = name
	if mtu > 0 {
		la.MTU = mtu
	}
	if err := netlink.LinkAdd(&netlink.Bridge{LinkAttrs: la}); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("create bridge %s: %w", name, err)
	}
	br, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("lookup bridge %s: %w", name, err)
	}
	if _, ok := br.(*netlink.Bridge); !ok {
		return fmt.Errorf("interface %s exists but is a %s, not a bridge", name, br.Type())
	}
	addr, err := netlink.ParseAddr(addrCIDR)
	if err != nil {
		return fmt.Errorf("parse bridge address %q: %w", addrCIDR, err)
	}
	if err := netlink.AddrAdd(br, addr); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("assign %s to bridge %s: %w", addrCIDR, name, err)
	}
	if err := netlink.LinkSetUp(br); err != nil {
		return fmt.Errorf("bring up bridge %s: %w", name, err)
	}
	return nil
}

// DeleteBridge removes the named bridge. Missing bridge is not an error.
func DeleteBridge(name string) error {
	br, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("lookup bridge %s: %w", name, err)
	}
	if err := netlink.LinkDel(br); err != nil {
		return fmt.Errorf("delete bridge %s: %w", name, err)
	}
	return nil
}

// Attach wires a container's fresh network namespace to the host bridge:
// veth pair on the host, peer moved into pid's namespace, renamed, addressed
// and routed from inside. The target namespace must already exist, which the
// lifecycle guarantees by attaching only after the child signalled
// readiness.
func Attach(pid int, name string, cfg *configs.Network) (*Endpoint, error) {
	if err := EnsureBridge(cfg.Bridge, cfg.BridgeAddress, cfg.Mtu); err != nil {
		return nil, err
	}
	br, err := netlink.LinkByName(cfg.Bridge)
	if err != nil {
		return nil, fmt.Errorf("lookup bridge %s: %w", cfg.Bridge, err)
	}

	hostName, peerName := VethNames(name)
	if _, err := netlink.LinkByName(hostName); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrInterfaceNameCollision, hostName)
	}

	la := netlink.NewLinkAttrs()
	la.Name = hostName
	if cfg.Mtu > 0 {
		la.MTU = cfg.Mtu
	}
	veth := &netlink.Veth{LinkAttrs: la, PeerName: peerName}
	if err := netlink.LinkAdd(veth); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("%w: %s", ErrInterfaceNameCollision, hostName)
		}
		return nil, fmt.Errorf("create veth pair %s/%s: %w", hostName, peerName, err)
	}
	// from here on a failure must not leave half a pair behind
	undo := func() {
		if link, err := netlink.LinkByName(hostName); err == nil {
			_ = netlink.LinkDel(link)
		}
	}

	host, err := netlink.LinkByName(hostName)
	if err != nil {
		undo()
		return nil, fmt.Errorf("lookup veth %s: %w", hostName, err)
	}
	if err := netlink.LinkSetMaster(host, br); err != nil {
		undo()
		return nil, fmt.Errorf("enslave %s to %s: %w", hostName, cfg.Bridge, err)
	}
	if err := netlink.LinkSetUp(host); err != nil {
		undo()
		return nil, fmt.Errorf("bring up %s: %w", hostName, err)
	}

	peer, err := netlink.LinkByName(peerName)
	if err != nil {
		undo()
		return nil, fmt.Errorf("lookup veth peer %s: %w", peerName, err)
	}
	if err := netlink.LinkSetNsPid(peer, pid); err != nil {
		undo()
		return nil, fmt.Errorf("move %s into pid %d netns: %w", peerName, pid, err)
	}

	addr, gw, err := containerAddress(name, cfg.BridgeAddress)
	if err != nil {
		undo()
		return nil, err
	}
	if err := withNetns(pid, func() error {
		return configureInside(peerName, addr, gw)
	}); err != nil {
		undo()
		return nil, err
	}

	logrus.Debugf("attached %s (peer %s, addr %s) to bridge %s", hostName, containerIfName, addr, cfg.Bridge)
	return &Endpoint{
		HostVeth: hostName,
		PeerVeth: containerIfName,
		Bridge:   cfg.Bridge,
		Address:  addr,
	}, nil
}

// Detach deletes the veth pair. Deleting the host end removes both endpoints
// once the container namespace holds no more references, so this must run
// only after the container process has fully exited. The shared bridge stays.
func Detach(ep *Endpoint) error {
	link, err := netlink.LinkByName(ep.HostVeth)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("lookup veth %s: %w", ep.HostVeth, err)
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("delete veth %s: %w", ep.HostVeth, err)
	}
	logrus.Debugf("detached %s from bridge %s", ep.HostVeth, ep.Bridge)
	return nil
}

// configureInside runs in the container's network namespace.
func configureInside(peerName, addrCIDR string, gw net.IP) error {
	peer, err := netlink.LinkByName(peerName)
	if err != nil {
		return fmt.Errorf("lookup %s inside container netns: %w", peerName, err)
	}
	if err := netlink.LinkSetName(peer, containerIfName); err != nil {
		return fmt.Errorf("rename %s to %s: %w", peerName, containerIfName, err)
	}
	eth, err := netlink.LinkByName(containerIfName)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", containerIfName, err)
	}
	addr, err := netlink.ParseAddr(addrCIDR)
	if err != nil {
		return fmt.Errorf("parse container address %q: %w", addrCIDR, err)
	}
	if err := netlink.AddrAdd(eth, addr); err != nil {
		return fmt.Errorf("assign %s to %s: %w", addrCIDR, containerIfName, err)
	}
	if err := netlink.LinkSetUp(eth); err != nil {
		return fmt.Errorf("bring up %s: %w", containerIfName, err)
	}
	if lo, err := netlink.LinkByName("lo"); err == nil {
		if err := netlink.LinkSetUp(lo); err != nil {
			return fmt.Errorf("bring up lo: %w", err)
		}
	}
	route := &netlink.Route{Gw: gw}
	if err := netlink.RouteAdd(route); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("add default route via %s: %w", gw, err)
	}
	return nil
}

// withNetns runs fn inside pid's network namespace. Namespace membership is
// per OS thread, so the work runs on a locked thread. The thread is only
// unlocked once it is back in the host namespace; if the restore fails the
// goroutine exits still locked, which destroys the thread instead of
// handing a container-joined thread back to the scheduler.
func withNetns(pid int, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()

		origin, err := netns.Get()
		if err != nil {
			runtime.UnlockOSThread()
			errCh <- fmt.Errorf("get host netns: %w", err)
			return
		}
		defer origin.Close()

		target, err := netns.GetFromPid(pid)
		if err != nil {
			runtime.UnlockOSThread()
			errCh <- fmt.Errorf("get netns of pid %d: %w", pid, err)
			return
		}
		defer target.Close()

		if err := netns.Set(target); err != nil {
			runtime.UnlockOSThread()
			errCh <- fmt.Errorf("enter netns of pid %d: %w", pid, err)
			return
		}
		fnErr := fn()
		if err := netns.Set(origin); err != nil {
			if fnErr == nil {
				fnErr = fmt.Errorf("return to host netns: %w", err)
			}
			errCh <- fnErr
			return
		}
		runtime.UnlockOSThread()
		errCh <- fnErr
	}()
	return <-errCh
}

// containerAddress derives the container's address within the bridge
// subnet: same prefix, host part picked from a hash of the name, skipping
// the network, broadcast and gateway addresses. Two containers hashing onto
// the same host part is the same documented limitation as colliding veth
// names.
func containerAddress(name, bridgeCIDR string) (string, net.IP, error) {
	gw, ipnet, err := net.ParseCIDR(bridgeCIDR)
	if err != nil {
		return "", nil, fmt.Errorf("parse bridge address %q: %w", bridgeCIDR, err)
	}
	gw4 := gw.To4()
	base := ipnet.IP.To4()
	if gw4 == nil || base == nil {
		return "", nil, fmt.Errorf("bridge address %q: only IPv4 subnets are supported", bridgeCIDR)
	}
	ones, bits := ipnet.Mask.Size()
	hostBits := uint(bits - ones)
	if hostBits < 2 {
		return "", nil, fmt.Errorf("bridge subnet %q leaves no room for container addresses", bridgeCIDR)
	}
	span := (uint32(1) << hostBits) - 2 // minus network and broadcast

	h := fnv.New32a()
	h.Write([]byte(name))
	baseU := ipToU32(base)
	gwU := ipToU32(gw4)
	offset := h.Sum32()%span + 1
	candidate := baseU + offset
	if candidate == gwU {
		candidate = baseU + offset%span + 1
	}
	ip := u32ToIP(candidate)
	return fmt.Sprintf("%s/%d", ip, ones), gw4, nil
}

func ipToU32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func u32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
