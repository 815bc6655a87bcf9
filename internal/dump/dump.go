package dump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/slabkit/internal/conv"
	"github.com/hupe1980/slabkit/internal/slab"
)

const (
	// Version is the format version written by Write.
	Version = 1

	magic           = "SLABDUMP"
	headerSize      = 16
	classHeaderSize = 32

	// maxRegionSize bounds a single decoded region.
	maxRegionSize = 1 << 30
)

var (
	// ErrInvalidMagic is returned when the input is not a dump.
	ErrInvalidMagic = errors.New("dump: invalid magic")
	// ErrUnsupportedVersion is returned for dumps from a newer format.
	ErrUnsupportedVersion = errors.New("dump: unsupported version")
	// ErrChecksum is returned when the trailer does not match the contents.
	ErrChecksum = errors.New("dump: checksum mismatch")
	// ErrCorrupt is returned for structurally invalid dumps.
	ErrCorrupt = errors.New("dump: corrupt")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Dump is a decoded dump.
type Dump struct {
	Version     int
	Compression Compression
	Classes     []slab.Image
}

// Write encodes images to w.
func Write(w io.Writer, images []slab.Image, c Compression) error {
	if !c.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	count, err := conv.IntToUint32(len(images))
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	h := crc32.New(castagnoli)
	out := io.MultiWriter(bw, h)

	header := make([]byte, headerSize)
	copy(header, magic)
	binary.LittleEndian.PutUint16(header[8:], Version)
	header[10] = byte(c)
	binary.LittleEndian.PutUint32(header[12:], count)
	if _, err := out.Write(header); err != nil {
		return err
	}

	for _, img := range images {
		if err := writeClass(out, img, c); err != nil {
			return err
		}
	}

	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, h.Sum32())
	if _, err := bw.Write(trailer); err != nil {
		return err
	}
	return bw.Flush()
}

func writeClass(w io.Writer, img slab.Image, c Compression) error {
	if img.SlotSize*img.SlotCount != len(img.Region) {
		return fmt.Errorf("%w: %d-byte class image holds %d bytes for %d slots",
			ErrCorrupt, img.SlotSize, len(img.Region), img.SlotCount)
	}
	if len(img.Region) > maxRegionSize {
		return fmt.Errorf("%w: %d-byte region too large", ErrCorrupt, len(img.Region))
	}

	var fields [3]uint32
	for i, v := range []int{img.SlotSize, img.SlotCount, img.Allocated} {
		u, err := conv.IntToUint32(v)
		if err != nil {
			return err
		}
		fields[i] = u
	}

	desc := make([]byte, classHeaderSize)
	binary.LittleEndian.PutUint32(desc[0:], fields[0])
	binary.LittleEndian.PutUint32(desc[4:], fields[1])
	binary.LittleEndian.PutUint32(desc[8:], fields[2])
	binary.LittleEndian.PutUint64(desc[16:], img.FallbackAllocs)
	binary.LittleEndian.PutUint64(desc[24:], img.FallbackFrees)
	if _, err := w.Write(desc); err != nil {
		return err
	}

	block, err := encodeBlock(img.Region, c)
	if err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

// Read decodes a dump from r and verifies its checksum.
func Read(r io.Reader) (*Dump, error) {
	h := crc32.New(castagnoli)
	br := bufio.NewReader(r)
	in := io.TeeReader(br, h)

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(in, header); err != nil {
		return nil, fmt.Errorf("dump: read header: %w", err)
	}
	if string(header[:8]) != magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(header[8:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	c := Compression(header[10])
	if !c.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	count := binary.LittleEndian.Uint32(header[12:])

	d := &Dump{Version: Version, Compression: c}
	for i := uint32(0); i < count; i++ {
		img, err := readClass(in, c)
		if err != nil {
			return nil, fmt.Errorf("dump: class %d: %w", i, err)
		}
		d.Classes = append(d.Classes, img)
	}

	want := h.Sum32()
	trailer := make([]byte, 4)
	if _, err := io.ReadFull(br, trailer); err != nil {
		return nil, fmt.Errorf("dump: read trailer: %w", err)
	}
	if got := binary.LittleEndian.Uint32(trailer); got != want {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, got, want)
	}
	return d, nil
}

func readClass(r io.Reader, c Compression) (slab.Image, error) {
	desc := make([]byte, classHeaderSize)
	if _, err := io.ReadFull(r, desc); err != nil {
		return slab.Image{}, err
	}

	slotSize := binary.LittleEndian.Uint32(desc[0:])
	slotCount := binary.LittleEndian.Uint32(desc[4:])
	allocated := binary.LittleEndian.Uint32(desc[8:])
	if err := slab.ValidateSlotSize(int(slotSize)); err != nil {
		return slab.Image{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if allocated > slotCount {
		return slab.Image{}, fmt.Errorf("%w: %d of %d slots allocated", ErrCorrupt, allocated, slotCount)
	}

	blockHeader := make([]byte, blockHeaderSize)
	if _, err := io.ReadFull(r, blockHeader); err != nil {
		return slab.Image{}, err
	}
	size := binary.LittleEndian.Uint32(blockHeader[0:])
	compressed := binary.LittleEndian.Uint32(blockHeader[4:])
	if uint64(size) != uint64(slotSize)*uint64(slotCount) || size > maxRegionSize || compressed > size {
		return slab.Image{}, fmt.Errorf("%w: block of %d bytes for %d %d-byte slots", ErrCorrupt, size, slotCount, slotSize)
	}

	region, err := readBlock(r, size, compressed, c)
	if err != nil {
		return slab.Image{}, err
	}

	return slab.Image{
		SlotSize:       int(slotSize),
		SlotCount:      int(slotCount),
		Allocated:      int(allocated),
		FallbackAllocs: binary.LittleEndian.Uint64(desc[16:]),
		FallbackFrees:  binary.LittleEndian.Uint64(desc[24:]),
		Region:         region,
	}, nil
}

func readBlock(r io.Reader, size, compressed uint32, c Compression) ([]byte, error) {
	if compressed == 0 {
		region := make([]byte, size)
		if _, err := io.ReadFull(r, region); err != nil {
			return nil, err
		}
		return region, nil
	}

	payload := make([]byte, compressed)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return decodeBlock(payload, size, c)
}
