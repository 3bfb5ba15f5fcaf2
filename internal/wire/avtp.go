// Package wire parses and serializes the three AVDECC wire formats (ADP,
// AECP-AEM, ACMP) that share the AVTP EtherType 0x22F0, plus the AEM
// descriptor bodies carried in READ_DESCRIPTOR_RESPONSE. Every field is
// decoded once into a typed struct at parse time (spec section 9's
// "raw-buffer decoding" design note) rather than read lazily from the
// received buffer. The Ethernet frame, common header, ADP, AECP-AEM and
// ACMP parsers each have a matching Serialize so parse(serialize(x)) == x
// (spec section 8 invariant 4); the descriptor bodies and the
// READ_DESCRIPTOR_RESPONSE header are parse-only.
package wire

import "encoding/binary"

// EtherTypeAVTP is the Ethernet II EtherType carrying ADP/AECP/ACMP traffic.
const EtherTypeAVTP = 0x22F0

// Subtype identifies which AVDECC sub-protocol a common header belongs to.
type Subtype uint8

const (
	SubtypeADP  Subtype = 0x7A
	SubtypeAECP Subtype = 0x7B
	SubtypeACMP Subtype = 0x7C
)

const ethernetHeaderLen = 14 // dst MAC(6) + src MAC(6) + EtherType(2)
const commonHeaderLen = 4

// CommonHeader is the 4-byte header shared by ADP, AECP and ACMP PDUs:
// a control-data bit, subtype, version, message_type, and an 11-bit
// control_data_length bounding the PDU-specific payload that follows. The
// top 5 bits alongside control_data_length carry valid_time (ADP) or
// status (AECP/ACMP), exposed here as StatusOrValidTime.
type CommonHeader struct {
	Subtype           Subtype
	Version           uint8
	MessageType       uint8
	StatusOrValidTime uint8
	ControlDataLength uint16
}

// EthernetFrame is a parsed raw Ethernet II frame carrying one AVTPDU.
type EthernetFrame struct {
	DstMAC  [6]byte
	SrcMAC  [6]byte
	Payload []byte // bytes starting at the AVTP subtype octet
}

// ParseEthernetFrame validates and strips the Ethernet II header, checking
// the EtherType is 0x22F0 per spec section 4.1. VLAN tags, if present
// before the EtherType, are the caller's responsibility to strip; this
// function expects an untagged frame (spec section 6 notes VLAN tags are
// "transparent" to the collaborator, which hands us the AVTP payload).
func ParseEthernetFrame(data []byte) (*EthernetFrame, error) {
	if len(data) < ethernetHeaderLen {
		return nil, malformed("ethernet frame too short: %d bytes", len(data))
	}
	etherType := binary.BigEndian.Uint16(data[12:14])
	if etherType != EtherTypeAVTP {
		return nil, malformed("unexpected EtherType 0x%04X", etherType)
	}
	f := &EthernetFrame{Payload: data[14:]}
	copy(f.DstMAC[:], data[0:6])
	copy(f.SrcMAC[:], data[6:12])
	return f, nil
}

// SerializeEthernetFrame prepends a dst/src MAC and the AVTP EtherType to
// an AVTP payload produced by one of this package's Serialize* functions.
func SerializeEthernetFrame(dst, src [6]byte, payload []byte) []byte {
	out := make([]byte, ethernetHeaderLen+len(payload))
	copy(out[0:6], dst[:])
	copy(out[6:12], src[:])
	binary.BigEndian.PutUint16(out[12:14], EtherTypeAVTP)
	copy(out[14:], payload)
	return out
}

// ParseCommonHeader parses and validates the 4-byte common header at the
// start of an AVTP payload, returning it along with the remaining bytes
// (the subtype-specific PDU body, truncated to control_data_length).
func ParseCommonHeader(data []byte) (CommonHeader, []byte, error) {
	if len(data) < commonHeaderLen {
		return CommonHeader{}, nil, malformed("common header too short: %d bytes", len(data))
	}

	subtype := Subtype(data[0] & 0x7F)
	version := (data[1] >> 4) & 0x07
	messageType := data[1] & 0x0F
	statusOrValid := (data[2] >> 3) & 0x1F
	cdl := (uint16(data[2]&0x07) << 8) | uint16(data[3])

	if subtype != SubtypeADP && subtype != SubtypeAECP && subtype != SubtypeACMP {
		return CommonHeader{}, nil, malformed("unrecognized subtype 0x%02X", subtype)
	}
	if version != 0 {
		return CommonHeader{}, nil, malformed("unsupported version %d", version)
	}

	body := data[commonHeaderLen:]
	if int(cdl) > len(body) {
		return CommonHeader{}, nil, malformed("control_data_length %d exceeds received %d bytes", cdl, len(body))
	}

	h := CommonHeader{
		Subtype:           subtype,
		Version:           version,
		MessageType:       messageType,
		StatusOrValidTime: statusOrValid,
		ControlDataLength: cdl,
	}
	return h, body[:cdl], nil
}

// SerializeCommonHeader emits the 4-byte common header for a PDU whose
// body is bodyLen bytes long.
func SerializeCommonHeader(h CommonHeader, bodyLen int) []byte {
	out := make([]byte, commonHeaderLen)
	out[0] = 0x80 | byte(h.Subtype)&0x7F
	out[1] = (h.Version&0x07)<<4 | (h.MessageType & 0x0F)
	cdl := uint16(bodyLen)
	out[2] = (h.StatusOrValidTime&0x1F)<<3 | byte(cdl>>8)&0x07
	out[3] = byte(cdl)
	return out
}
