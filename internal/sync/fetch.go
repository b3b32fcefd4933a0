package sync

import (
	"context"

	"github.com/newrelic/stripe-env-sync/internal/provider"
)

// readEntireSet follows the listing cursor until it is exhausted and returns
// every record of kind in page order.
func readEntireSet(
	ctx context.Context,
	catalog provider.Catalog,
	kind provider.Kind,
) ([]provider.Record, error) {
	records := []provider.Record{}
	nextCursor := ""

	for done := false; !done; {
		page, err := catalog.ListPage(ctx, kind, nextCursor)
		if err != nil {
			return nil, err
		}

		records = append(records, page.Records...)
		nextCursor = page.NextCursor
		done = (nextCursor == "")
	}

	return records, nil
}
