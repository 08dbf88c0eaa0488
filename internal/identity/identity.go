// Package identity derives stable record identities from parsed records.
package identity

import (
	"crypto/md5" //nolint:gosec // identities, not security
	"encoding/hex"

	"github.com/tphakala/marcharvest/internal/marc"
)

// OriginalIDTag is the control field holding the external record identifier.
const OriginalIDTag = "001"

// Identity is the (id, original id, hash) triple of a record.
type Identity struct {
	ID         string
	OriginalID string
	Hash       string
}

// Derive computes the identity of rec whose canonical dump is dump.
//
// Hash is the MD5 of dump. ID is the MD5 of the first non-empty 001 control
// field. Records without one fall back to their hash, so every edit of such a
// record yields a new ID.
func Derive(rec marc.Fielder, dump []byte) Identity {
	id := Identity{Hash: md5Hex(dump)}

	for _, f := range rec.Fields(OriginalIDTag) {
		if f.IsControl() && f.Data != "" {
			id.OriginalID = f.Data
			break
		}
	}

	if id.OriginalID == "" {
		id.ID = id.Hash
		return id
	}
	id.ID = md5Hex([]byte(id.OriginalID))
	return id
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec // identities, not security
	return hex.EncodeToString(sum[:])
}
