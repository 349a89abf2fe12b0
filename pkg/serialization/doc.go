// Package serialization converts store values to and from the strings kept
// in storage.
//
// A Serializer is chosen per persister; nothing here is process-wide. Values
// whose concrete type is listed in a Registry are written with a type tag so
// they come back as that type even when the destination is an interface. Tags
// apply at any depth: slice elements, map values and struct fields all carry
// them.
package serialization
