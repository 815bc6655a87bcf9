// Package dump encodes point-in-time images of slab classes.
//
// # Format
//
// All integers are little endian.
//
//	Header (16 bytes)
//	  Magic        [8]byte  "SLABDUMP"
//	  Version      uint16
//	  Compression  uint8
//	  Reserved     uint8
//	  ClassCount   uint32
//	Class (ClassCount times)
//	  SlotSize        uint32
//	  SlotCount       uint32
//	  Allocated       uint32
//	  Reserved        uint32
//	  FallbackAllocs  uint64
//	  FallbackFrees   uint64
//	  Block
//	    UncompressedSize  uint32
//	    CompressedSize    uint32  (0: stored uncompressed)
//	    Data
//	Trailer
//	  Checksum  uint32  CRC32-Castagnoli of everything before it
//
// Region images are mostly the two scrub patterns, so they compress well
// with either LZ4 or ZSTD.
package dump
