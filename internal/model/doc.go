// Package model holds the typed representations of the AVDECC entity model:
// entity identity (EntityID, MAC), the discovered Endpoint record, the AEM
// descriptor variants, and the per-endpoint DescriptorRegistry they are
// stored in. Nothing in this package touches the network; it is decoded-once,
// value-typed state (spec section 9's "raw-buffer decoding" design note).
package model
