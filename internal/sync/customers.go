package sync

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/newrelic/stripe-env-sync/internal/provider"
)

func (ts *tenantSync) syncCustomers(ctx context.Context) error {
	defer newrelic.FromContext(ctx).StartSegment("syncCustomers").End()

	ts.log.Info("beginning customer sync")

	testCustomers, err := ts.fetch(ctx, ts.test, provider.KIND_CUSTOMER)
	if err != nil {
		return err
	}

	liveCustomers, err := ts.fetch(ctx, ts.live, provider.KIND_CUSTOMER)
	if err != nil {
		return err
	}

	index := newLiveIndex(liveCustomers)

	for n := range testCustomers {
		testCustomer := &testCustomers[n]

		if liveCustomer := index.findLiveCounterpart(testCustomer); liveCustomer != nil {
			ts.skip(provider.KIND_CUSTOMER, testCustomer, liveCustomer)
			continue
		}

		ts.log.Debugf("no live customer found for %s, adding new customer to live", testCustomer.ID)

		err := ts.create(ctx, provider.KIND_CUSTOMER, testCustomer, newLiveCustomer(testCustomer))
		if err != nil {
			return err
		}
	}

	ts.log.Info("customer sync completed")

	return nil
}
