package dronesim

// pcap.go writes packet captures of a running scenario.  Every interface
// can carry a tap; a tapped interface appends one Ethernet/IPv4/UDP frame
// to its capture file each time a packet enters or leaves it.  One capture
// file per tapped interface, named by the shared prefix and the interface
// number.

import (
	"fmt"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"net"
	"os"
	"time"
)

const pcapSnapLen uint32 = 65536

// a pcapTap is one interface's capture stream
type pcapTap struct {
	intrfc *Intrfc
	file   *os.File
	pcapw  *pcapgo.Writer
}

// createPcapTap opens a capture file and attaches the tap to its interface
func createPcapTap(intrfc *Intrfc, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	tap := new(pcapTap)
	tap.intrfc = intrfc
	tap.file = f
	tap.pcapw = pcapgo.NewWriter(f)
	err = tap.pcapw.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet)
	if err != nil {
		f.Close()
		return err
	}
	intrfc.tap = tap
	return nil
}

// EnablePcapAll taps every wired interface in the scenario.  Capture
// files are named prefix-interfacenumber.pcap.
func EnablePcapAll(prefix string, ns *NodeSet) error {
	for _, node := range ns.AllNodes() {
		for _, intrfc := range node.intrfcs {
			if intrfc.media != wiredMedia {
				continue
			}
			filename := fmt.Sprintf("%s-%d.pcap", prefix, intrfc.number)
			err := createPcapTap(intrfc, filename)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// closePcapTaps flushes and detaches every capture stream
func closePcapTaps(ns *NodeSet) {
	for _, node := range ns.AllNodes() {
		for _, intrfc := range node.intrfcs {
			if intrfc.tap != nil {
				intrfc.tap.file.Close()
				intrfc.tap = nil
			}
		}
	}
}

// synthMAC derives a stable locally administered hardware address from an
// interface address, so captures are readable without a real link layer
func synthMAC(addr net.IP) net.HardwareAddr {
	ip4 := addr.To4()
	if ip4 == nil {
		return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x00}
	}
	return net.HardwareAddr{0x02, 0x00, ip4[0], ip4[1], ip4[2], ip4[3]}
}

// record appends one frame carrying the packet's addressing to the capture.
// The payload bytes are synthetic, only the length is meaningful.
func (tap *pcapTap) record(now float64, pckt *Packet) {
	eth := layers.Ethernet{
		SrcMAC:       synthMAC(pckt.srcAddr),
		DstMAC:       synthMAC(pckt.dstAddr),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    pckt.srcAddr,
		DstIP:    pckt.dstAddr,
	}
	udp := layers.UDP{
		SrcPort: layers.UDPPort(pckt.srcPort),
		DstPort: layers.UDPPort(pckt.dstPort),
	}
	err := udp.SetNetworkLayerForChecksum(&ip)
	if err != nil {
		panic(err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	payload := make([]byte, pckt.pcktLen)
	err = gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(payload))
	if err != nil {
		panic(err)
	}

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(0, 0).UTC().Add(time.Duration(now * float64(time.Second))),
		CaptureLength: len(data),
		Length:        len(data),
	}
	err = tap.pcapw.WritePacket(ci, data)
	if err != nil {
		panic(err)
	}
}
