package dronesim

// address.go numbers the interfaces of an assembled scenario and installs
// the static routes that tie the wired and radio segments together.  The
// wired segment draws addresses from one block, the radio segment from
// another, with the gateway holding the first address of each.

import (
	"encoding/binary"
	"fmt"
	"net"
)

// An AddressBlock hands out consecutive host addresses from a base prefix
type AddressBlock struct {
	base net.IP
	mask net.IPMask
	next uint32 // host offset of the next address handed out
}

// createAddressBlock is a constructor.  Base and mask arrive in dotted
// quad form from the configuration store.
func createAddressBlock(baseStr, maskStr string) (*AddressBlock, error) {
	base := net.ParseIP(baseStr)
	if base == nil || base.To4() == nil {
		return nil, fmt.Errorf("bad address block base %s", baseStr)
	}
	maskIP := net.ParseIP(maskStr)
	if maskIP == nil || maskIP.To4() == nil {
		return nil, fmt.Errorf("bad address block mask %s", maskStr)
	}
	ab := new(AddressBlock)
	ab.base = base.To4()
	ab.mask = net.IPMask(maskIP.To4())
	ab.next = 1
	return ab, nil
}

// nextAddr returns the next unused address in the block, failing once
// the block runs out of host addresses
func (ab *AddressBlock) nextAddr() (net.IP, error) {
	addr := binary.BigEndian.Uint32(ab.base) + ab.next
	ab.next += 1
	out := make(net.IP, 4)
	binary.BigEndian.PutUint32(out, addr)
	if !ab.prefix().Contains(out) {
		return nil, fmt.Errorf("address block %s is exhausted", ab.prefix())
	}
	return out, nil
}

// prefix returns the block as a routable prefix
func (ab *AddressBlock) prefix() *net.IPNet {
	return &net.IPNet{IP: ab.base.Mask(ab.mask), Mask: ab.mask}
}

// An AddressPlan records every address handed out for a scenario and the
// prefixes they were drawn from
type AddressPlan struct {
	wired *net.IPNet
	radio *net.IPNet

	gwWired   net.IP
	hostWired net.IP
	gwRadio   net.IP
	ueAddrs   map[int]net.IP // by device id, in attachment order
}

// WiredPrefix returns the prefix the wired segment draws from
func (adp *AddressPlan) WiredPrefix() *net.IPNet {
	return adp.wired
}

// RadioPrefix returns the prefix the radio segment draws from
func (adp *AddressPlan) RadioPrefix() *net.IPNet {
	return adp.radio
}

// GatewayWiredAddr returns the gateway's address on the wired segment
func (adp *AddressPlan) GatewayWiredAddr() net.IP {
	return adp.gwWired
}

// HostAddr returns the remote host's address
func (adp *AddressPlan) HostAddr() net.IP {
	return adp.hostWired
}

// GatewayRadioAddr returns the gateway's address on the radio tunnel
func (adp *AddressPlan) GatewayRadioAddr() net.IP {
	return adp.gwRadio
}

// UeAddr returns the address assigned to a user device
func (adp *AddressPlan) UeAddr(ue *Node) (net.IP, error) {
	addr, present := adp.ueAddrs[ue.id]
	if !present {
		return nil, fmt.Errorf("device %s has no address", ue.name)
	}
	return addr, nil
}

// AssignAddresses numbers every interface in the scenario, installs the
// static routes between segments, and checks that the result leaves every
// pair of devices mutually reachable
func AssignAddresses(ctx *SimulationContext, ns *NodeSet, rs *RadioStack) (*AddressPlan, error) {
	wiredBlock, err := createAddressBlock(
		ctx.Cfg.StringValue("addr.wiredBase", "1.0.0.0"),
		ctx.Cfg.StringValue("addr.wiredMask", "255.0.0.0"))
	if err != nil {
		return nil, err
	}
	radioBlock, err := createAddressBlock(
		ctx.Cfg.StringValue("addr.radioBase", "7.0.0.0"),
		ctx.Cfg.StringValue("addr.radioMask", "255.0.0.0"))
	if err != nil {
		return nil, err
	}

	if wiredBlock.prefix().Contains(radioBlock.base) ||
		radioBlock.prefix().Contains(wiredBlock.base) {
		return nil, fmt.Errorf("address blocks %s and %s overlap",
			wiredBlock.prefix(), radioBlock.prefix())
	}

	adp := new(AddressPlan)
	adp.wired = wiredBlock.prefix()
	adp.radio = radioBlock.prefix()
	adp.ueAddrs = make(map[int]net.IP)

	// the wired segment, gateway first and then the remote host
	gwWired := ns.Gateway.intrfcByMedia(wiredMedia)
	hostWired := ns.RemoteHost.intrfcByMedia(wiredMedia)
	if gwWired == nil || hostWired == nil {
		return nil, fmt.Errorf("wired segment is missing an interface")
	}
	gwWired.addr, err = wiredBlock.nextAddr()
	if err != nil {
		return nil, err
	}
	hostWired.addr, err = wiredBlock.nextAddr()
	if err != nil {
		return nil, err
	}
	adp.gwWired = gwWired.addr
	adp.hostWired = hostWired.addr

	// the radio segment, gateway tunnel first and then the user devices
	rs.gwIntrfc.addr, err = radioBlock.nextAddr()
	if err != nil {
		return nil, err
	}
	adp.gwRadio = rs.gwIntrfc.addr
	for _, ueIntrfc := range rs.ueRadios {
		ueIntrfc.addr, err = radioBlock.nextAddr()
		if err != nil {
			return nil, err
		}
		adp.ueAddrs[ueIntrfc.device.id] = ueIntrfc.addr
	}

	// the remote host reaches the radio segment through the gateway
	ns.RemoteHost.StaticRouting().AddRoute(adp.radio, hostWired, adp.gwWired)

	// the gateway faces both segments directly
	ns.Gateway.StaticRouting().AddRoute(adp.wired, gwWired, nil)
	ns.Gateway.StaticRouting().AddRoute(adp.radio, rs.gwIntrfc, nil)

	// user devices send everything up the tunnel
	for _, ueIntrfc := range rs.ueRadios {
		ueIntrfc.device.StaticRouting().SetDefaultRoute(ueIntrfc, adp.gwRadio)
	}

	err = verifyReachability(ns, rs)
	if err != nil {
		return nil, err
	}
	return adp, nil
}
