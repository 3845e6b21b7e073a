// Package cost implements the additive cost ledger every GroveDB
// primitive returns alongside its value (spec.md §4.A). Constructors
// return plain structs, matching the teacher's own style of returning
// concrete configuration structs rather than builders.
package cost

// RemovalKind tags which shape a StorageCost's removed bytes take.
type RemovalKind uint8

const (
	// RemovalNone means nothing was removed.
	RemovalNone RemovalKind = iota
	// RemovalBasic is a flat byte count with no epoch attribution.
	RemovalBasic
	// RemovalSectioned attributes removed bytes per identifier per epoch,
	// so a caller can refund storage cost to whoever paid for it.
	RemovalSectioned
)

// SectionKey identifies one (identifier, epoch) bucket of removed bytes.
type SectionKey struct {
	Identifier string
	Epoch      uint64
}

// RemovedBytes is the sum-type described in spec.md §4.A: either no
// removal, a flat count, or a per-identifier-per-epoch breakdown.
type RemovedBytes struct {
	Kind     RemovalKind
	Basic    uint32
	Sections map[SectionKey]uint32
}

// Total returns the total number of bytes removed regardless of shape.
func (r RemovedBytes) Total() uint32 {
	switch r.Kind {
	case RemovalBasic:
		return r.Basic
	case RemovalSectioned:
		var sum uint32
		for _, v := range r.Sections {
			sum += v
		}
		return sum
	default:
		return 0
	}
}

// Add merges another RemovedBytes into r in place.
func (r *RemovedBytes) Add(other RemovedBytes) {
	switch {
	case other.Kind == RemovalNone:
		return
	case r.Kind == RemovalNone:
		*r = other
		if r.Kind == RemovalSectioned {
			cp := make(map[SectionKey]uint32, len(other.Sections))
			for k, v := range other.Sections {
				cp[k] = v
			}
			r.Sections = cp
		}
	case r.Kind == RemovalBasic && other.Kind == RemovalBasic:
		r.Basic += other.Basic
	case r.Kind == RemovalSectioned || other.Kind == RemovalSectioned:
		merged := map[SectionKey]uint32{}
		if r.Kind == RemovalSectioned {
			for k, v := range r.Sections {
				merged[k] += v
			}
		} else if r.Kind == RemovalBasic {
			merged[SectionKey{Identifier: "", Epoch: 0}] += r.Basic
		}
		if other.Kind == RemovalSectioned {
			for k, v := range other.Sections {
				merged[k] += v
			}
		} else if other.Kind == RemovalBasic {
			merged[SectionKey{Identifier: "", Epoch: 0}] += other.Basic
		}
		r.Kind = RemovalSectioned
		r.Sections = merged
	}
}

// SectionRemovalFunc converts a basic removal count into a sectioned one
// at commit time, attributing bytes to whichever identifier/epoch the
// caller's element flags describe (spec.md §4.A).
type SectionRemovalFunc func(flags []byte, keyLen, valueLen uint32) RemovedBytes

// StorageCost tracks the byte-level delta a primitive caused in the
// underlying storage context.
type StorageCost struct {
	AddedBytes    uint32
	ReplacedBytes uint32
	RemovedBytes  RemovedBytes
}

// Add merges another StorageCost into s in place.
func (s *StorageCost) Add(other StorageCost) {
	s.AddedBytes += other.AddedBytes
	s.ReplacedBytes += other.ReplacedBytes
	s.RemovedBytes.Add(other.RemovedBytes)
}

// Cost is the additive record returned alongside every primitive's value.
type Cost struct {
	SeekCount          uint64
	StorageLoadedBytes uint64
	HashNodeCalls      uint64
	// HashByteBlocks accumulates ⌈len/64⌉ per hash call; §4.B notes
	// hashing cost doesn't depend on length beyond 64-byte blocks.
	HashByteBlocks uint64
	Storage        StorageCost
}

// Add merges another Cost into c in place. Cost addition is the
// primitive operation behind property 5 of spec.md §8
// (cost(apply(A;B)) = cost(apply(A)) + cost(apply(B))).
func (c *Cost) Add(other *Cost) {
	if other == nil {
		return
	}
	c.SeekCount += other.SeekCount
	c.StorageLoadedBytes += other.StorageLoadedBytes
	c.HashNodeCalls += other.HashNodeCalls
	c.HashByteBlocks += other.HashByteBlocks
	c.Storage.Add(other.Storage)
}

// OperationTransition classifies how a key's stored value changed,
// driving both the storage-cost derivation and the update_element_flags
// callback (spec.md §4.A).
type OperationTransition uint8

const (
	OperationInsertNew OperationTransition = iota
	OperationUpdateBiggerSize
	OperationUpdateSmallerSize
	OperationUpdateSameSize
)

// UpdateElementFlagsFunc may rewrite an element's flags on each
// transition (e.g. to stamp the epoch that paid for newly added bytes).
// Returning true tells the caller to persist the mutated flags.
type UpdateElementFlagsFunc func(transition OperationTransition, oldFlags, newFlags []byte) (changed bool, out []byte, err error)
