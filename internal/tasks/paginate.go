package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// MaxPageSize is the provider's per-page ceiling.
const MaxPageSize = services.MaxPageSize

// maxPreallocate bounds the capacity reserved from a reported total.
const maxPreallocate = 10_000

// PageFetcher reads one offset/limit page of a collection.
type PageFetcher[T any] func(ctx context.Context, offset, limit int) (*models.Page[T], error)

// CollectAll reads every page of a collection, in provider order. pageSize is clamped to
// [MaxPageSize]; zero or less uses the ceiling.
//
// The offset advances by the number of items actually returned, so short pages are
// tolerated. Reading stops once offset reaches total or a page comes back empty, which
// also ends the loop when total is over-reported.
func CollectAll[T any](ctx context.Context, fetch PageFetcher[T], pageSize int) ([]T, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var items []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return items, fmt.Errorf("failed to read page at offset %d: %w", offset, err)
		}

		if items == nil {
			items = make([]T, 0, min(max(page.Total, len(page.Items)), maxPreallocate))
		}
		items = append(items, page.Items...)
		offset += len(page.Items)

		if len(page.Items) == 0 || offset >= page.Total {
			return items, nil
		}
	}
}

// Probe reads a single item and returns the collection's reported total. Only total is
// considered; the items are ignored.
func Probe[T any](ctx context.Context, fetch PageFetcher[T]) (int, error) {
	page, err := fetch(ctx, 0, 1)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}
