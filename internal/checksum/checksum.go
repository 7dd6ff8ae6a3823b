package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/indexsync/internal/models"
)

// Records returns a digest of the upsert payload that does not depend on
// traversal order. Two runs over unchanged content produce the same value.
func Records(records []models.Record) (string, error) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b models.Record) int {
		return strings.Compare(a.ObjectID, b.ObjectID)
	})
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, r := range sorted {
		// encoding/json sorts map keys, so each line is canonical.
		if err := enc.Encode(r); err != nil {
			return "", fmt.Errorf("checksum: encode record %s: %w", r.ObjectID, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
