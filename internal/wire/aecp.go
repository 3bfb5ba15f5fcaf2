package wire

import "encoding/binary"

// AECP message types (4-bit message_type field of the common header). Only
// the AEM command/response pair is in scope (spec section 1 excludes
// AECP-AA).
const (
	AECPAEMCommand  uint8 = 0
	AECPAEMResponse uint8 = 1
)

// AEM command_type values this controller originates or must recognize on
// the wire (IEEE 1722.1-2013 clause 7.4). Unknown values are passed through
// numerically; the enumeration engine only special-cases READ_DESCRIPTOR.
const (
	AEMCommandReadDescriptor uint16 = 0x0004
	AEMCommandSetControl     uint16 = 0x0018
	AEMCommandGetControl     uint16 = 0x0019
)

// AECP-AEM status codes (IEEE 1722.1-2013 clause 7.4).
const (
	AEMStatusSuccess                uint8 = 0
	AEMStatusNotImplemented         uint8 = 1
	AEMStatusNoSuchDescriptor       uint8 = 2
	AEMStatusEntityLocked           uint8 = 3
	AEMStatusEntityAcquired         uint8 = 4
	AEMStatusNotAuthenticated       uint8 = 5
	AEMStatusAuthenticationDisabled uint8 = 6
	AEMStatusBadArguments           uint8 = 7
	AEMStatusNoResources            uint8 = 8
	AEMStatusInProgress             uint8 = 9
	AEMStatusNotSupported           uint8 = 10
)

const aecpHeaderLen = 20

// AECPAEMPDU is a parsed AECP-AEM command or response; Body holds the
// command-specific payload as raw bytes for per-command decoders (spec
// section 4.1) — currently only READ_DESCRIPTOR_RESPONSE's body is decoded
// further, by internal/wire's descriptor parsers.
type AECPAEMPDU struct {
	MessageType        uint8
	Status             uint8
	TargetEntityID     uint64
	ControllerEntityID uint64
	SequenceID         uint16
	Unsolicited        bool
	CommandType        uint16
	Body               []byte
}

// ParseAECPAEMPDU parses the common header, the 20-byte AEM header, and
// leaves the command-specific remainder as Body.
func ParseAECPAEMPDU(data []byte) (*AECPAEMPDU, error) {
	hdr, body, err := ParseCommonHeader(data)
	if err != nil {
		return nil, err
	}
	if hdr.Subtype != SubtypeAECP {
		return nil, malformed("not an AECP frame (subtype 0x%02X)", hdr.Subtype)
	}
	if hdr.MessageType != AECPAEMCommand && hdr.MessageType != AECPAEMResponse {
		return nil, malformed("unsupported AECP message_type %d (AA not in scope)", hdr.MessageType)
	}
	if len(body) < aecpHeaderLen {
		return nil, malformed("AECP-AEM body too short: %d bytes", len(body))
	}

	rawCmd := binary.BigEndian.Uint16(body[18:20])
	return &AECPAEMPDU{
		MessageType:        hdr.MessageType,
		Status:             hdr.StatusOrValidTime,
		TargetEntityID:     binary.BigEndian.Uint64(body[0:8]),
		ControllerEntityID: binary.BigEndian.Uint64(body[8:16]),
		SequenceID:         binary.BigEndian.Uint16(body[16:18]),
		Unsolicited:        rawCmd&0x8000 != 0,
		CommandType:        rawCmd &^ 0x8000,
		Body:               body[aecpHeaderLen:],
	}, nil
}

// SerializeAECPAEMPDU emits the AVTP payload for an AECP-AEM PDU.
func SerializeAECPAEMPDU(p *AECPAEMPDU) []byte {
	body := make([]byte, aecpHeaderLen+len(p.Body))
	binary.BigEndian.PutUint64(body[0:8], p.TargetEntityID)
	binary.BigEndian.PutUint64(body[8:16], p.ControllerEntityID)
	binary.BigEndian.PutUint16(body[16:18], p.SequenceID)
	rawCmd := p.CommandType &^ 0x8000
	if p.Unsolicited {
		rawCmd |= 0x8000
	}
	binary.BigEndian.PutUint16(body[18:20], rawCmd)
	copy(body[aecpHeaderLen:], p.Body)

	hdr := SerializeCommonHeader(CommonHeader{
		Subtype:           SubtypeAECP,
		MessageType:       p.MessageType,
		StatusOrValidTime: p.Status,
	}, len(body))
	return append(hdr, body...)
}

// ReadDescriptorRequestBody builds the 6-byte READ_DESCRIPTOR command body
// (configuration_index, descriptor_type, descriptor_index); no reserved
// field is emitted between configuration_index and descriptor_type.
func ReadDescriptorRequestBody(configurationIndex uint16, descriptorType, descriptorIndex uint16) []byte {
	b := make([]byte, 6)
	binary.BigEndian.PutUint16(b[0:2], configurationIndex)
	binary.BigEndian.PutUint16(b[2:4], descriptorType)
	binary.BigEndian.PutUint16(b[4:6], descriptorIndex)
	return b
}

// SetControlRequestBody builds a SET_CONTROL command body targeting the
// CONTROL descriptor (descriptor_type, descriptor_index), followed by the
// raw control value bytes. IDENTIFY is a LINEAR_UINT8 control, encoded as
// a single value byte (IEEE 1722.1-2013 clause 7.4.21).
func SetControlRequestBody(descriptorType, descriptorIndex uint16, value []byte) []byte {
	b := make([]byte, 4+len(value))
	binary.BigEndian.PutUint16(b[0:2], descriptorType)
	binary.BigEndian.PutUint16(b[2:4], descriptorIndex)
	copy(b[4:], value)
	return b
}

// ParseReadDescriptorResponseHeader decodes the fixed part of a
// READ_DESCRIPTOR_RESPONSE body: configuration_index, descriptor_type,
// descriptor_index, and the remaining descriptor-specific bytes.
func ParseReadDescriptorResponseHeader(body []byte) (configurationIndex, descriptorType, descriptorIndex uint16, rest []byte, err error) {
	if len(body) < 6 {
		return 0, 0, 0, nil, malformed("READ_DESCRIPTOR_RESPONSE body too short: %d bytes", len(body))
	}
	configurationIndex = binary.BigEndian.Uint16(body[0:2])
	descriptorType = binary.BigEndian.Uint16(body[2:4])
	descriptorIndex = binary.BigEndian.Uint16(body[4:6])
	return configurationIndex, descriptorType, descriptorIndex, body[6:], nil
}
