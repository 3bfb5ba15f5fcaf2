package wire

import "testing"

func TestACMPDURoundTrip(t *testing.T) {
	want := &ACMPDU{
		MessageType:        ACMPConnectRXCommand,
		Status:             ACMPStatusSuccess,
		StreamID:           0x001B921000000001,
		ControllerEntityID: 0x001B921000000099,
		TalkerEntityID:     0x001B921000000002,
		ListenerEntityID:   0x001B921000000003,
		TalkerUniqueID:     0,
		ListenerUniqueID:   1,
		StreamDestMAC:       [6]byte{0x91, 0xe0, 0xf0, 0x00, 0xfe, 0x01},
		ConnectionCount:     1,
		SequenceID:          5,
		Flags:               0,
		StreamVLANID:        0,
	}
	raw := SerializeACMPDU(want)

	got, err := ParseACMPDU(raw)
	if err != nil {
		t.Fatalf("ParseACMPDU: %v", err)
	}
	if *got != *want {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *got, *want)
	}
}

func TestACMPDUBodyLength(t *testing.T) {
	raw := SerializeACMPDU(&ACMPDU{MessageType: ACMPConnectRXCommand})
	if len(raw) != 4+acmpBodyLen {
		t.Fatalf("serialized ACMPDU length = %d, want %d", len(raw), 4+acmpBodyLen)
	}
}

func TestParseACMPDURejectsInvalidMessageType(t *testing.T) {
	raw := SerializeACMPDU(&ACMPDU{MessageType: ACMPConnectRXCommand})
	raw[1] = (raw[1] & 0xF0) | 0x0F // message_type = 15, beyond the 14 defined values
	if _, err := ParseACMPDU(raw); err == nil {
		t.Fatal("expected error for invalid ACMP message_type")
	}
}

func TestParseACMPDURejectsWrongSubtype(t *testing.T) {
	raw := SerializeACMPDU(&ACMPDU{MessageType: ACMPConnectRXCommand})
	raw[0] = 0x80 | byte(SubtypeADP)
	if _, err := ParseACMPDU(raw); err == nil {
		t.Fatal("expected error for mismatched subtype")
	}
}
