package slab

// Image is a point-in-time copy of a class.
type Image struct {
	SlotSize       int
	SlotCount      int
	Allocated      int
	FallbackAllocs uint64
	FallbackFrees  uint64
	Region         []byte
}

// Image copies the class region and counters. Like Verify, it must not run
// concurrently with Allocate or Deallocate on the class.
func (c *Class) Image() Image {
	region := make([]byte, len(c.region))
	copy(region, c.region)

	return Image{
		SlotSize:       c.slotSize,
		SlotCount:      int(c.slotCount),
		Allocated:      c.NumAllocated(),
		FallbackAllocs: c.FallbackAllocs(),
		FallbackFrees:  c.FallbackFrees(),
		Region:         region,
	}
}
