// Package dedup computes listing fingerprints and looks them up in the store.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/amishk599/agregador/internal/model"
)

const separator = "|"

// Fingerprint returns the SHA-256 hex digest of the normalized
// (title, company, location) triple. Each field is trimmed and lower-cased.
func Fingerprint(title, company, location string) string {
	key := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(company)),
		strings.ToLower(strings.TrimSpace(location)),
	}, separator)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Deduplicator checks fingerprints against stored listings.
type Deduplicator struct {
	store model.ListingStore
}

// New returns a Deduplicator backed by store.
func New(store model.ListingStore) *Deduplicator {
	return &Deduplicator{store: store}
}

// IsDuplicate returns the listing holding fingerprint, or nil when none does.
func (d *Deduplicator) IsDuplicate(ctx context.Context, fingerprint string) (*model.Listing, error) {
	l, err := d.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("looking up fingerprint %s: %w", fingerprint, err)
	}
	return l, nil
}
