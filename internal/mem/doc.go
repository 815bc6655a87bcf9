// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides cache-line aligned heap buffers for the general-purpose fallback
// path and for heap-backed arena chunks on platforms without anonymous mappings.
package mem
