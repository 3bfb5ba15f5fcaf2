package wire

import "encoding/binary"

// ACMP message types (4-bit message_type field of the common header).
// Commands are even, matching responses are command+1 (spec section 4.5).
const (
	ACMPConnectTXCommand        uint8 = 0
	ACMPConnectTXResponse       uint8 = 1
	ACMPDisconnectTXCommand     uint8 = 2
	ACMPDisconnectTXResponse    uint8 = 3
	ACMPGetTXStateCommand       uint8 = 4
	ACMPGetTXStateResponse      uint8 = 5
	ACMPConnectRXCommand        uint8 = 6
	ACMPConnectRXResponse       uint8 = 7
	ACMPDisconnectRXCommand     uint8 = 8
	ACMPDisconnectRXResponse    uint8 = 9
	ACMPGetRXStateCommand       uint8 = 10
	ACMPGetRXStateResponse      uint8 = 11
	ACMPGetTXConnectionCommand  uint8 = 12
	ACMPGetTXConnectionResponse uint8 = 13
)

// ACMP status codes (IEEE 1722.1-2013 clause 8.2.1.18, subset used here).
const (
	ACMPStatusSuccess               uint8 = 0
	ACMPStatusListenerUnknownID     uint8 = 1
	ACMPStatusTalkerUnknownID       uint8 = 2
	ACMPStatusTalkerDestMacFail     uint8 = 3
	ACMPStatusTalkerNoStreamIndex   uint8 = 4
	ACMPStatusTalkerNoBandwidth     uint8 = 5
	ACMPStatusTalkerExclusive       uint8 = 6
	ACMPStatusListenerTalkerTimeout uint8 = 7
	ACMPStatusListenerExclusive     uint8 = 8
	ACMPStatusStateUnavailable      uint8 = 9
	ACMPStatusNotConnected          uint8 = 10
	ACMPStatusNoSuchConnection      uint8 = 11
	ACMPStatusCouldNotSendMessage   uint8 = 12
	ACMPStatusTalkerMisbehaving     uint8 = 13
	ACMPStatusListenerMisbehaving   uint8 = 14
	ACMPStatusNotSupported          uint8 = 31
)

const acmpBodyLen = 50

// ACMPDU is a fully decoded ACMP protocol data unit (spec section 4.1/4.5).
type ACMPDU struct {
	MessageType        uint8
	Status             uint8
	StreamID           uint64
	ControllerEntityID uint64
	TalkerEntityID     uint64
	ListenerEntityID   uint64
	TalkerUniqueID     uint16
	ListenerUniqueID   uint16
	StreamDestMAC      [6]byte
	ConnectionCount    uint16
	SequenceID         uint16
	Flags              uint16
	StreamVLANID       uint16
}

// ParseACMPDU parses the common header and the 50-byte ACMP payload.
func ParseACMPDU(data []byte) (*ACMPDU, error) {
	hdr, body, err := ParseCommonHeader(data)
	if err != nil {
		return nil, err
	}
	if hdr.Subtype != SubtypeACMP {
		return nil, malformed("not an ACMP frame (subtype 0x%02X)", hdr.Subtype)
	}
	if hdr.MessageType > ACMPGetTXConnectionResponse {
		return nil, malformed("invalid ACMP message_type %d", hdr.MessageType)
	}
	if len(body) != acmpBodyLen {
		return nil, malformed("ACMP control_data_length %d, want %d", len(body), acmpBodyLen)
	}

	p := &ACMPDU{
		MessageType:        hdr.MessageType,
		Status:             hdr.StatusOrValidTime,
		StreamID:           binary.BigEndian.Uint64(body[0:8]),
		ControllerEntityID: binary.BigEndian.Uint64(body[8:16]),
		TalkerEntityID:     binary.BigEndian.Uint64(body[16:24]),
		ListenerEntityID:   binary.BigEndian.Uint64(body[24:32]),
		TalkerUniqueID:     binary.BigEndian.Uint16(body[32:34]),
		ListenerUniqueID:   binary.BigEndian.Uint16(body[34:36]),
		ConnectionCount:    binary.BigEndian.Uint16(body[42:44]),
		SequenceID:         binary.BigEndian.Uint16(body[44:46]),
		Flags:              binary.BigEndian.Uint16(body[46:48]),
		StreamVLANID:       binary.BigEndian.Uint16(body[48:50]),
	}
	copy(p.StreamDestMAC[:], body[36:42])
	return p, nil
}

// SerializeACMPDU emits the AVTP payload for an ACMPDU.
func SerializeACMPDU(p *ACMPDU) []byte {
	body := make([]byte, acmpBodyLen)
	binary.BigEndian.PutUint64(body[0:8], p.StreamID)
	binary.BigEndian.PutUint64(body[8:16], p.ControllerEntityID)
	binary.BigEndian.PutUint64(body[16:24], p.TalkerEntityID)
	binary.BigEndian.PutUint64(body[24:32], p.ListenerEntityID)
	binary.BigEndian.PutUint16(body[32:34], p.TalkerUniqueID)
	binary.BigEndian.PutUint16(body[34:36], p.ListenerUniqueID)
	copy(body[36:42], p.StreamDestMAC[:])
	binary.BigEndian.PutUint16(body[42:44], p.ConnectionCount)
	binary.BigEndian.PutUint16(body[44:46], p.SequenceID)
	binary.BigEndian.PutUint16(body[46:48], p.Flags)
	binary.BigEndian.PutUint16(body[48:50], p.StreamVLANID)

	hdr := SerializeCommonHeader(CommonHeader{
		Subtype:           SubtypeACMP,
		MessageType:       p.MessageType,
		StatusOrValidTime: p.Status,
	}, len(body))
	return append(hdr, body...)
}
