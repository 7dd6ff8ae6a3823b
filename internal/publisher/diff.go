package publisher

import (
	"sort"

	"github.com/starford/indexsync/internal/models"
)

// Diff computes the changeset that makes remote equal local. Every remote id
// without a local record is deleted, and every local record is upserted.
// Neither input is modified.
func Diff(local []models.Record, remote map[string]struct{}) models.Changeset {
	keep := make(map[string]struct{}, len(local))
	for _, r := range local {
		keep[r.ObjectID] = struct{}{}
	}

	var del []string
	for id := range remote {
		if _, ok := keep[id]; !ok {
			del = append(del, id)
		}
	}
	sort.Strings(del)

	up := make([]models.Record, len(local))
	copy(up, local)
	return models.Changeset{ToDelete: del, ToUpsert: up}
}
