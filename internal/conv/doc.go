// Package conv provides checked integer conversions.
//
// Slot counts and dump headers are fixed-width (uint32/uint64) while Go sizes
// are int. These helpers reject values that would silently wrap, which matters
// when sizes come from configuration or from a dump file on disk.
package conv
