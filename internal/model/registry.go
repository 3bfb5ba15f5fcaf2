package model

import "sort"

// Registry is the per-endpoint mapping (descriptor_type, descriptor_index)
// -> Descriptor populated by the enumeration engine (spec section 4.2).
// Insertion is monotone during one enumeration pass; ResetForReenumeration
// on the owning Endpoint starts a fresh Registry for the next pass.
type Registry struct {
	byKey map[Key]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[Key]Descriptor)}
}

// Put stores a descriptor obtained from a successful READ_DESCRIPTOR.
func (r *Registry) Put(d Descriptor) {
	r.byKey[Key{Type: d.Type(), Index: d.Index()}] = d
}

// Get looks up a descriptor by (type, index) in O(1).
func (r *Registry) Get(t DescriptorType, index uint16) (Descriptor, bool) {
	d, ok := r.byKey[Key{Type: t, Index: index}]
	return d, ok
}

// Has reports whether (type, index) has been populated.
func (r *Registry) Has(t DescriptorType, index uint16) bool {
	_, ok := r.byKey[Key{Type: t, Index: index}]
	return ok
}

// Len returns the number of descriptors currently stored.
func (r *Registry) Len() int {
	return len(r.byKey)
}

// ByType returns the descriptors of the requested type in ascending index
// order (spec section 4.2's iteration guarantee).
func (r *Registry) ByType(t DescriptorType) []Descriptor {
	out := make([]Descriptor, 0)
	for k, d := range r.byKey {
		if k.Type == t {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// Entity returns the (ENTITY, 0) descriptor if present.
func (r *Registry) Entity() (EntityDescriptor, bool) {
	d, ok := r.Get(DescriptorEntity, 0)
	if !ok {
		return EntityDescriptor{}, false
	}
	ed, ok := d.(EntityDescriptor)
	return ed, ok
}

// Configuration returns the (CONFIGURATION, index) descriptor if present.
func (r *Registry) Configuration(index uint16) (ConfigurationDescriptor, bool) {
	d, ok := r.Get(DescriptorConfiguration, index)
	if !ok {
		return ConfigurationDescriptor{}, false
	}
	cd, ok := d.(ConfigurationDescriptor)
	return cd, ok
}
