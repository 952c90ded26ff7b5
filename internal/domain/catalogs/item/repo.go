package item

import (
	"context"
)

// Repository defines read access to the item catalog.
type Repository interface {
	// ListActive returns the site's items without deletion mark, ordered by item id.
	// A non-empty itemID restricts the result to that item.
	ListActive(ctx context.Context, siteID, itemID string) ([]Item, error)
}
