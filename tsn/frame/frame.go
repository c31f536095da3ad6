// Package frame defines the Ethernet frames that move through the egress
// path. Only the fields the timing core needs are modelled; payload bytes are
// counted, not carried.
package frame

import (
	"fmt"
	"net"

	"github.com/miamuminovic/nesting/sim/id"
	"github.com/miamuminovic/nesting/sim/timing"
)

// Ethernet II and 802.1Q sizes in bytes.
const (
	HeaderBytes      = 14
	VlanTagBytes     = 4
	FCSBytes         = 4
	MinFrameBytes    = 64
	PreambleSFDBytes = 8
	InterFrameGap    = 12
	MTUBytes         = 1500
)

// Sizes in bits.
const (
	MTUBitLength = MTUBytes * 8

	// PerFrameOverheadBits covers header, tag, FCS and preamble on top of the
	// payload when a queue decides whether a frame still fits.
	PerFrameOverheadBits = 240

	// MaxFrameBits is the admission size of a full MTU frame.
	MaxFrameBits = MTUBitLength + PerFrameOverheadBits
)

// VLAN tag limits.
const (
	NumPCPValues = 8
	MaxPCP       = NumPCPValues - 1
	MaxVID       = 4094
)

const (
	broadcastOctet    = 0xff
	multicastBitOctet = 0x01
)

// MacAddress is a 48-bit IEEE 802 address. It is comparable and can key maps.
type MacAddress [6]byte

// Broadcast is the all-ones address.
var Broadcast = MacAddress{
	broadcastOctet, broadcastOctet, broadcastOctet,
	broadcastOctet, broadcastOctet, broadcastOctet,
}

// ParseMacAddress parses colon or hyphen separated 48-bit addresses.
func ParseMacAddress(s string) (MacAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MacAddress{}, err
	}

	if len(hw) != 6 {
		return MacAddress{}, fmt.Errorf("address %q is not a 48-bit MAC", s)
	}

	var addr MacAddress
	copy(addr[:], hw)

	return addr, nil
}

// MustParseMacAddress is ParseMacAddress for constants in tests and examples.
func MustParseMacAddress(s string) MacAddress {
	addr, err := ParseMacAddress(s)
	if err != nil {
		panic(err)
	}

	return addr
}

// IsMulticast reports whether the address is a group address. The broadcast
// address is a group address too.
func (a MacAddress) IsMulticast() bool {
	return a[0]&multicastBitOctet != 0
}

// IsBroadcast reports whether the address is the all-ones address.
func (a MacAddress) IsBroadcast() bool {
	return a == Broadcast
}

func (a MacAddress) String() string {
	return net.HardwareAddr(a[:]).String()
}

// UnmarshalText lets addresses appear as strings in descriptions.
func (a *MacAddress) UnmarshalText(text []byte) error {
	addr, err := ParseMacAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}

// VlanTag holds the 802.1Q tag control information of a frame.
type VlanTag struct {
	PCP uint8  `yaml:"pcp"`
	DE  bool   `yaml:"de"`
	VID uint16 `yaml:"vid"`
}

// Validate checks the tag fields against their widths.
func (t VlanTag) Validate() error {
	if t.PCP > MaxPCP {
		return fmt.Errorf("pcp %d exceeds %d", t.PCP, MaxPCP)
	}

	if t.VID > MaxVID {
		return fmt.Errorf("vid %d exceeds %d", t.VID, MaxVID)
	}

	return nil
}

// Frame is a VLAN tagged Ethernet frame.
type Frame struct {
	ID           string
	Src          MacAddress
	Dst          MacAddress
	Vlan         VlanTag
	PayloadBytes int
	CreatedAt    timing.VTime
}

// New creates a frame with a fresh ID.
func New(
	src, dst MacAddress,
	tag VlanTag,
	payloadBytes int,
	now timing.VTime,
) *Frame {
	return &Frame{
		ID:           id.Generate(),
		Src:          src,
		Dst:          dst,
		Vlan:         tag,
		PayloadBytes: payloadBytes,
		CreatedAt:    now,
	}
}

// ByteLength is the size of the MAC frame including header, tag, FCS and
// padding to the minimum frame size.
func (f *Frame) ByteLength() int {
	n := f.PayloadBytes + HeaderBytes + VlanTagBytes + FCSBytes
	if n < MinFrameBytes {
		n = MinFrameBytes
	}

	return n
}

// PayloadBits is the payload size in bits.
func (f *Frame) PayloadBits() uint64 {
	return uint64(f.PayloadBytes) * 8
}

// AdmissionBits is the size a queue compares against a transmission budget.
func (f *Frame) AdmissionBits() uint64 {
	return f.PayloadBits() + PerFrameOverheadBits
}

// BitLength is ByteLength in bits.
func (f *Frame) BitLength() uint64 {
	return uint64(f.ByteLength()) * 8
}

// WireBitLength is the number of bit times the frame occupies on the link,
// including preamble, start delimiter and inter-frame gap.
func (f *Frame) WireBitLength() uint64 {
	return uint64(f.ByteLength()+PreambleSFDBytes+InterFrameGap) * 8
}
