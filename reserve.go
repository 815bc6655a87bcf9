package slabkit

import (
	"github.com/hupe1980/slabkit/internal/arena"
	"github.com/hupe1980/slabkit/internal/mmap"
)

// Reserver hands out permanent memory for class regions. Memory returned by
// ReservePermanent is never given back.
type Reserver interface {
	ReservePermanent(size int) ([]byte, error)
}

// ReserverStats reports what an ArenaReserver has obtained and handed out.
type ReserverStats = arena.Stats

// ArenaReserver is a bump allocator over large chunks. Regions are 64-byte
// aligned.
type ArenaReserver struct {
	arena *arena.Arena
}

// NewArenaReserver returns a reserver over anonymous memory mappings. On
// platforms without them it uses the Go heap. chunkSize <= 0 selects
// DefaultChunkSize. Mapped chunks are advised for random access since free
// slots are handed out in no particular order.
func NewArenaReserver(chunkSize int) *ArenaReserver {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ArenaReserver{arena: arena.New(chunkSize, arena.WithAdvice(mmap.AccessRandom))}
}

// NewHeapReserver returns a reserver over Go heap chunks.
func NewHeapReserver(chunkSize int) *ArenaReserver {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ArenaReserver{arena: arena.New(chunkSize, arena.WithHeapChunks())}
}

// ReservePermanent implements Reserver.
func (r *ArenaReserver) ReservePermanent(size int) ([]byte, error) {
	return r.arena.Reserve(size)
}

// Stats returns the current reservation statistics.
func (r *ArenaReserver) Stats() ReserverStats { return r.arena.Stats() }

func (r *ArenaReserver) String() string { return r.arena.String() }

var _ Reserver = (*ArenaReserver)(nil)
