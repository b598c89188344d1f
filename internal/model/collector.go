package model

import "context"

// Collector pulls raw listings from one source. Failures are returned as
// *CollectionError so the caller can scope them to that source.
type Collector interface {
	Collect(ctx context.Context, src Source) ([]RawListing, error)
}
