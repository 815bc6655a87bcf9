package dump

import (
	"github.com/hupe1980/slabkit/internal/slab"
)

// Classification counts slots of an image by content.
type Classification struct {
	SlotSize int `json:"slot_size"`
	Slots    int `json:"slots"`
	// Poisoned slots hold DeallocScrubByte behind the link word: free.
	Poisoned int `json:"poisoned"`
	// Scrubbed slots hold AllocScrubByte throughout: handed out, never written.
	Scrubbed int `json:"scrubbed"`
	// Live slots hold anything else: handed out and in use, or damaged.
	Live int `json:"live"`
}

// Classify inspects every slot of img.
func Classify(img slab.Image) Classification {
	cl := Classification{SlotSize: img.SlotSize, Slots: img.SlotCount}
	if img.SlotSize <= 0 {
		return cl
	}

	for off := 0; off+img.SlotSize <= len(img.Region); off += img.SlotSize {
		s := img.Region[off : off+img.SlotSize]
		switch {
		case all(s[slab.LinkSize:], slab.DeallocScrubByte):
			cl.Poisoned++
		case all(s, slab.AllocScrubByte):
			cl.Scrubbed++
		default:
			cl.Live++
		}
	}
	return cl
}

func all(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}
