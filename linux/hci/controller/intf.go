package controller

import (
	"net"

	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/iso"
)

var _ hcicore.DeviceOption = (*HCI)(nil)

// Addr returns the public device address read at bring-up.
func (h *HCI) Addr() net.HardwareAddr {
	return h.addr
}

// LocalVersion returns the version information read at bring-up.
func (h *HCI) LocalVersion() cmd.ReadLocalVersionInformationRP {
	return h.version
}

// ACLBuffer returns the controller's LE ACL data buffers.
func (h *HCI) ACLBuffer() iso.BufferInfo {
	return h.aclBuf
}

// ISOBuffer returns the controller's ISO data buffers.
func (h *HCI) ISOBuffer() iso.BufferInfo {
	return h.isoBuf
}

// ISO returns the ISO data channel, or nil if the controller has no ISO
// buffers. It must only be used on the dispatch sequence, see Do.
func (h *HCI) ISO() *iso.DataChannel {
	return h.iso
}

// Info summarizes what bring-up learned about the controller.
type Info struct {
	Addr          string         `json:"addr"`
	HCIVersion    uint8          `json:"hci_version"`
	HCIRevision   uint16         `json:"hci_revision"`
	LMPVersion    uint8          `json:"lmp_version"`
	Manufacturer  uint16         `json:"manufacturer"`
	LMPSubversion uint16         `json:"lmp_subversion"`
	ACL           iso.BufferInfo `json:"acl"`
	ISO           iso.BufferInfo `json:"iso"`
}

// Info returns the controller summary read at bring-up.
func (h *HCI) Info() Info {
	return Info{
		Addr:          h.addr.String(),
		HCIVersion:    h.version.HCIVersion,
		HCIRevision:   h.version.HCIRevision,
		LMPVersion:    h.version.LMPVersion,
		Manufacturer:  h.version.ManufacturerName,
		LMPSubversion: h.version.LMPSubversion,
		ACL:           h.aclBuf,
		ISO:           h.isoBuf,
	}
}
