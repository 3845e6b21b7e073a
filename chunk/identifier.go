package chunk

import (
	"github.com/multiformats/go-multihash"

	"github.com/dashpay/grovedb-go/hash"
)

// EncodeChunkHash wraps h as a self-describing multihash, so a
// replication client receiving chunk data out of band (over the wire,
// per spec.md §4.J) can identify the hash algorithm without prior
// knowledge of GroveDB's internals, the same purpose the teacher's own
// multihash wrapping serves for its block/tx digests.
func EncodeChunkHash(h hash.Hash) ([]byte, error) {
	code, ok := multihash.Names["blake3"]
	if !ok {
		code = multihash.SHA2_256
	}
	return multihash.Encode(h[:], code)
}
