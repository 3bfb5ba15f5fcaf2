package wire

import "encoding/binary"

// ADP message types (4-bit message_type field of the common header).
const (
	ADPEntityAvailable uint8 = 0
	ADPEntityDeparting uint8 = 1
	ADPEntityDiscover  uint8 = 2
)

const adpBodyLen = 56

// ADPDU is a fully decoded ADP protocol data unit (spec section 4.1).
type ADPDU struct {
	MessageType            uint8
	ValidTime              uint8 // units of 2 seconds
	EntityID               uint64
	EntityModelID          uint64
	EntityCapabilities     uint32
	TalkerStreamSources    uint16
	TalkerCapabilities     uint16
	ListenerStreamSinks    uint16
	ListenerCapabilities   uint16
	ControllerCapabilities uint32
	AvailableIndex         uint32
	GPTPGrandmasterID      uint64
	GPTPDomainNumber       uint8
	IdentifyControlIndex   uint16
	AssociationID          uint64
}

// ParseADPDU parses the common header and the full 56-byte ADP payload.
// data is the AVTP payload starting at the subtype octet.
func ParseADPDU(data []byte) (*ADPDU, error) {
	hdr, body, err := ParseCommonHeader(data)
	if err != nil {
		return nil, err
	}
	if hdr.Subtype != SubtypeADP {
		return nil, malformed("not an ADP frame (subtype 0x%02X)", hdr.Subtype)
	}
	if hdr.MessageType > ADPEntityDiscover {
		return nil, malformed("invalid ADP message_type %d", hdr.MessageType)
	}
	if len(body) != adpBodyLen {
		return nil, malformed("ADP control_data_length %d, want %d", len(body), adpBodyLen)
	}

	return &ADPDU{
		MessageType:            hdr.MessageType,
		ValidTime:              hdr.StatusOrValidTime,
		EntityID:               binary.BigEndian.Uint64(body[0:8]),
		EntityModelID:          binary.BigEndian.Uint64(body[8:16]),
		EntityCapabilities:     binary.BigEndian.Uint32(body[16:20]),
		TalkerStreamSources:    binary.BigEndian.Uint16(body[20:22]),
		TalkerCapabilities:     binary.BigEndian.Uint16(body[22:24]),
		ListenerStreamSinks:    binary.BigEndian.Uint16(body[24:26]),
		ListenerCapabilities:   binary.BigEndian.Uint16(body[26:28]),
		ControllerCapabilities: binary.BigEndian.Uint32(body[28:32]),
		AvailableIndex:         binary.BigEndian.Uint32(body[32:36]),
		GPTPGrandmasterID:      binary.BigEndian.Uint64(body[36:44]),
		GPTPDomainNumber:       body[44],
		IdentifyControlIndex:   binary.BigEndian.Uint16(body[46:48]),
		AssociationID:          binary.BigEndian.Uint64(body[48:56]),
	}, nil
}

// SerializeADPDU emits the AVTP payload (common header + 56-byte body) for
// an ADPDU.
func SerializeADPDU(p *ADPDU) []byte {
	body := make([]byte, adpBodyLen)
	binary.BigEndian.PutUint64(body[0:8], p.EntityID)
	binary.BigEndian.PutUint64(body[8:16], p.EntityModelID)
	binary.BigEndian.PutUint32(body[16:20], p.EntityCapabilities)
	binary.BigEndian.PutUint16(body[20:22], p.TalkerStreamSources)
	binary.BigEndian.PutUint16(body[22:24], p.TalkerCapabilities)
	binary.BigEndian.PutUint16(body[24:26], p.ListenerStreamSinks)
	binary.BigEndian.PutUint16(body[26:28], p.ListenerCapabilities)
	binary.BigEndian.PutUint32(body[28:32], p.ControllerCapabilities)
	binary.BigEndian.PutUint32(body[32:36], p.AvailableIndex)
	binary.BigEndian.PutUint64(body[36:44], p.GPTPGrandmasterID)
	body[44] = p.GPTPDomainNumber
	body[45] = 0 // reserved
	binary.BigEndian.PutUint16(body[46:48], p.IdentifyControlIndex)
	binary.BigEndian.PutUint64(body[48:56], p.AssociationID)

	hdr := SerializeCommonHeader(CommonHeader{
		Subtype:           SubtypeADP,
		MessageType:       p.MessageType,
		StatusOrValidTime: p.ValidTime,
	}, len(body))

	return append(hdr, body...)
}
