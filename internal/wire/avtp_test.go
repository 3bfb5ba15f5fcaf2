package wire

import (
	"bytes"
	"testing"
)

func TestParseCommonHeaderRoundTrip(t *testing.T) {
	h := CommonHeader{Subtype: SubtypeADP, Version: 0, MessageType: ADPEntityAvailable, StatusOrValidTime: 31}
	hdr := SerializeCommonHeader(h, 56)
	got, body, err := ParseCommonHeader(append(hdr, make([]byte, 56)...))
	if err != nil {
		t.Fatalf("ParseCommonHeader: %v", err)
	}
	if got.Subtype != h.Subtype || got.MessageType != h.MessageType || got.StatusOrValidTime != h.StatusOrValidTime {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
	if len(body) != 56 {
		t.Fatalf("body len = %d, want 56", len(body))
	}
}

func TestParseCommonHeaderRejectsUnknownSubtype(t *testing.T) {
	data := []byte{0x80 | 0x01, 0x00, 0x00, 0x00}
	if _, _, err := ParseCommonHeader(data); err == nil {
		t.Fatal("expected error for unrecognized subtype")
	}
}

func TestParseCommonHeaderRejectsShortControlDataLength(t *testing.T) {
	hdr := SerializeCommonHeader(CommonHeader{Subtype: SubtypeADP, MessageType: ADPEntityAvailable}, 56)
	if _, _, err := ParseCommonHeader(append(hdr, make([]byte, 10)...)); err == nil {
		t.Fatal("expected error when control_data_length exceeds received bytes")
	}
}

func TestEthernetFrameRoundTrip(t *testing.T) {
	dst := [6]byte{0x91, 0xe0, 0xf0, 0x00, 0xfe, 0x00}
	src := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	payload := []byte{0x01, 0x02, 0x03}
	raw := SerializeEthernetFrame(dst, src, payload)

	f, err := ParseEthernetFrame(raw)
	if err != nil {
		t.Fatalf("ParseEthernetFrame: %v", err)
	}
	if f.DstMAC != dst || f.SrcMAC != src {
		t.Fatalf("MAC mismatch: got dst=%v src=%v", f.DstMAC, f.SrcMAC)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("payload mismatch: got %v want %v", f.Payload, payload)
	}
}

func TestParseEthernetFrameRejectsWrongEtherType(t *testing.T) {
	raw := make([]byte, 18)
	raw[12], raw[13] = 0x08, 0x00 // IPv4, not AVTP
	if _, err := ParseEthernetFrame(raw); err == nil {
		t.Fatal("expected error for non-AVTP EtherType")
	}
}
