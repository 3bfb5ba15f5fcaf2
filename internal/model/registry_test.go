package model

import "testing"

func TestRegistryPutGet(t *testing.T) {
	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{
			name: "entity and configuration",
			descs: []Descriptor{
				EntityDescriptor{EntityID: 0x001122FFFE334455},
				ConfigurationDescriptor{IndexValue: 0, ObjectName: "default"},
			},
		},
		{
			name: "two stream inputs out of order",
			descs: []Descriptor{
				StreamDescriptor{TypeValue: DescriptorStreamInput, IndexValue: 3},
				StreamDescriptor{TypeValue: DescriptorStreamInput, IndexValue: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, d := range tt.descs {
				r.Put(d)
			}
			if r.Len() != len(tt.descs) {
				t.Fatalf("Len() = %d, want %d", r.Len(), len(tt.descs))
			}
			for _, d := range tt.descs {
				got, ok := r.Get(d.Type(), d.Index())
				if !ok {
					t.Fatalf("Get(%v, %d) missing", d.Type(), d.Index())
				}
				if got.Index() != d.Index() {
					t.Fatalf("Get(%v, %d) = index %d", d.Type(), d.Index(), got.Index())
				}
			}
		})
	}
}

func TestRegistryByTypeAscendingIndex(t *testing.T) {
	r := NewRegistry()
	r.Put(StreamDescriptor{TypeValue: DescriptorStreamOutput, IndexValue: 2})
	r.Put(StreamDescriptor{TypeValue: DescriptorStreamOutput, IndexValue: 0})
	r.Put(StreamDescriptor{TypeValue: DescriptorStreamOutput, IndexValue: 1})
	r.Put(StreamDescriptor{TypeValue: DescriptorStreamInput, IndexValue: 0})

	got := r.ByType(DescriptorStreamOutput)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, d := range got {
		if d.Index() != uint16(i) {
			t.Fatalf("ByType()[%d].Index() = %d, want %d", i, d.Index(), i)
		}
	}
}

func TestRegistryHasMissing(t *testing.T) {
	r := NewRegistry()
	if r.Has(DescriptorEntity, 0) {
		t.Fatal("Has() true on empty registry")
	}
	r.Put(EntityDescriptor{})
	if !r.Has(DescriptorEntity, 0) {
		t.Fatal("Has() false after Put")
	}
}

func TestEndpointResetForReenumeration(t *testing.T) {
	e := NewEndpoint(1, MAC(0xAABBCCDDEEFF), 1000)
	e.Registry.Put(EntityDescriptor{})
	e.IncrementEnumerationErrors()
	e.State = StateReady

	e.ResetForReenumeration()

	if e.Registry.Len() != 0 {
		t.Fatalf("Registry.Len() = %d after reset, want 0", e.Registry.Len())
	}
	if e.EnumerationErrors() != 0 {
		t.Fatalf("EnumerationErrors() = %d after reset, want 0", e.EnumerationErrors())
	}
	if e.State != StateEnumerating {
		t.Fatalf("State = %v after reset, want ENUMERATING", e.State)
	}
}

func TestMACRoundTrip(t *testing.T) {
	b := [6]byte{0x00, 0x11, 0x22, 0xFF, 0xFE, 0x33}
	m := MACFromBytes(b)
	if m.Bytes() != b {
		t.Fatalf("Bytes() = %v, want %v", m.Bytes(), b)
	}
	if m.String() != "00:11:22:ff:fe:33" {
		t.Fatalf("String() = %q", m.String())
	}
}
