package wire

import (
	"encoding/binary"
	"testing"

	"github.com/vronchetti/avdecc-lib/internal/model"
)

func padName(name string, n int) []byte {
	b := make([]byte, n)
	copy(b, name)
	return b
}

func TestParseEntityDescriptor(t *testing.T) {
	b := make([]byte, entityDescriptorLen)
	binary.BigEndian.PutUint64(b[0:8], 0x001B921000000001)
	binary.BigEndian.PutUint64(b[8:16], 0x001B92FF00000001)
	binary.BigEndian.PutUint32(b[16:20], 1<<3)
	binary.BigEndian.PutUint32(b[32:36], 7)
	copy(b[44:108], padName("controller", 64))

	d, err := ParseDescriptor(uint16(model.DescriptorEntity), 0, b)
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	ed, ok := d.(model.EntityDescriptor)
	if !ok {
		t.Fatalf("got %T, want model.EntityDescriptor", d)
	}
	if ed.EntityID != 0x001B921000000001 || ed.AvailableIndex != 7 || ed.EntityName != "controller" {
		t.Fatalf("unexpected decode: %+v", ed)
	}
}

func TestParseDescriptorUnknownType(t *testing.T) {
	if _, err := ParseDescriptor(0x7FFF, 0, nil); err == nil {
		t.Fatal("expected error for unsupported descriptor_type")
	}
}

func TestParseConfigurationDescriptorCounts(t *testing.T) {
	b := make([]byte, 70+4*2)
	copy(b[0:64], padName("configuration", 64))
	binary.BigEndian.PutUint16(b[66:68], 2)  // descriptor_counts_count
	binary.BigEndian.PutUint16(b[68:70], 74) // descriptor_counts_offset, measured from descriptor_type
	binary.BigEndian.PutUint16(b[70:72], uint16(model.DescriptorAudioUnit))
	binary.BigEndian.PutUint16(b[72:74], 1)
	binary.BigEndian.PutUint16(b[74:76], uint16(model.DescriptorStreamInput))
	binary.BigEndian.PutUint16(b[76:78], 2)

	d, err := ParseDescriptor(uint16(model.DescriptorConfiguration), 3, b)
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	cfg := d.(model.ConfigurationDescriptor)
	if cfg.Index() != 3 {
		t.Fatalf("Index() = %d, want 3", cfg.Index())
	}
	if len(cfg.DescriptorCounts) != 2 {
		t.Fatalf("DescriptorCounts len = %d, want 2", len(cfg.DescriptorCounts))
	}
	if cfg.DescriptorCounts[1].Type != model.DescriptorStreamInput || cfg.DescriptorCounts[1].Count != 2 {
		t.Fatalf("unexpected second count entry: %+v", cfg.DescriptorCounts[1])
	}
}

func TestParseStreamDescriptorWithFormats(t *testing.T) {
	b := make([]byte, 128+2*8)
	copy(b[0:64], padName("stream-0", 64))
	binary.BigEndian.PutUint16(b[68:70], 1<<1) // class A
	binary.BigEndian.PutUint64(b[70:78], 0x02A0020140000001)
	binary.BigEndian.PutUint16(b[78:80], 132)                // formats_offset
	binary.BigEndian.PutUint16(b[80:82], 2)                  // number_of_formats
	binary.BigEndian.PutUint64(b[82:90], 0x1122334455667788) // backup_talker_entity_id_0
	binary.BigEndian.PutUint16(b[90:92], 3)                  // backup_talker_unique_0
	binary.BigEndian.PutUint16(b[122:124], 5)                // avb_interface_index
	binary.BigEndian.PutUint32(b[124:128], 4096)             // buffer_length
	b = append(b, make([]byte, 16)...)
	binary.BigEndian.PutUint64(b[128:136], 0x02A0020140000001)
	binary.BigEndian.PutUint64(b[136:144], 0x02A0020140000002)

	d, err := ParseDescriptor(uint16(model.DescriptorStreamInput), 0, b)
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	s := d.(model.StreamDescriptor)
	if !s.Flags.ClassA {
		t.Fatal("expected ClassA flag set")
	}
	if len(s.StreamFormats) != 2 {
		t.Fatalf("StreamFormats len = %d, want 2", len(s.StreamFormats))
	}
	if s.CurrentFormatName != "AAF" {
		t.Fatalf("CurrentFormatName = %q, want AAF", s.CurrentFormatName)
	}
	if s.BackupTalkers[0].EntityID != 0x1122334455667788 || s.BackupTalkers[0].UniqueID != 3 {
		t.Fatalf("unexpected backup talker 0: %+v", s.BackupTalkers[0])
	}
	if s.AVBInterfaceIndex != 5 || s.BufferLength != 4096 {
		t.Fatalf("unexpected avb_interface_index/buffer_length: %+v", s)
	}
}

func TestParseStreamDescriptorRejectsBadFormatsOffsetInvariant(t *testing.T) {
	// formats_offset must equal 132 unconditionally (spec section 9's open
	// question: reject rather than merely ignore a wrong literal).
	b := make([]byte, 128)
	binary.BigEndian.PutUint16(b[78:80], 100)
	if _, err := ParseDescriptor(uint16(model.DescriptorStreamOutput), 0, b); err == nil {
		t.Fatal("expected error for bad formats_offset")
	}
}

func TestParseStreamDescriptorRejectsTruncatedFormats(t *testing.T) {
	b := make([]byte, 128)
	binary.BigEndian.PutUint16(b[78:80], 132)
	binary.BigEndian.PutUint16(b[80:82], 1) // claims one format, body ends at 128
	if _, err := ParseDescriptor(uint16(model.DescriptorStreamOutput), 0, b); err == nil {
		t.Fatal("expected error for truncated stream_formats")
	}
}

func TestParseStringsDescriptor(t *testing.T) {
	b := make([]byte, stringsDescriptorLen)
	copy(b[0:64], padName("en-US string 0", 64))
	copy(b[64:128], padName("en-US string 1", 64))

	d, err := ParseDescriptor(uint16(model.DescriptorStrings), 4, b)
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	s := d.(model.StringsDescriptor)
	if s.Index() != 4 {
		t.Fatalf("Index() = %d, want 4", s.Index())
	}
	if s.Strings[0] != "en-US string 0" || s.Strings[1] != "en-US string 1" {
		t.Fatalf("unexpected strings: %+v", s.Strings)
	}
}
