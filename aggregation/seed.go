package aggregation

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/UoMCS/bigscreen/models"
)

// DeriveSeed hashes the rendered bodies in lexicographic order, so the seed
// depends only on which slides exist and not on which source produced them
// or in what order sources finished. The first 8 bytes of the SHA-256 digest
// are read big-endian.
func DeriveSeed(slides []models.CandidateSlide) int64 {
	bodies := make([]string, len(slides))
	for i, s := range slides {
		bodies[i] = s.Body
	}
	sort.Strings(bodies)

	h := sha256.New()
	for _, b := range bodies {
		h.Write([]byte(b))
	}
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
