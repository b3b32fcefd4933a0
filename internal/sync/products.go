package sync

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/newrelic/stripe-env-sync/internal/provider"
)

type productSets struct {
	testProducts []provider.Record
	testPlans    []provider.Record
	liveProducts []provider.Record
	livePlans    []provider.Record
}

func (ts *tenantSync) fetchProductSets(ctx context.Context) (*productSets, error) {
	var err error

	sets := &productSets{}

	if sets.testProducts, err = ts.fetch(ctx, ts.test, provider.KIND_PRODUCT); err != nil {
		return nil, err
	}

	if sets.testPlans, err = ts.fetch(ctx, ts.test, provider.KIND_PLAN); err != nil {
		return nil, err
	}

	if sets.liveProducts, err = ts.fetch(ctx, ts.live, provider.KIND_PRODUCT); err != nil {
		return nil, err
	}

	if sets.livePlans, err = ts.fetch(ctx, ts.live, provider.KIND_PLAN); err != nil {
		return nil, err
	}

	return sets, nil
}

// syncProducts mirrors products and then plans. Plans are resolved against a
// fresh snapshot because the live IDs of products created in the first pass
// are only known after re-reading the live account.
func (ts *tenantSync) syncProducts(ctx context.Context) error {
	defer newrelic.FromContext(ctx).StartSegment("syncProducts").End()

	ts.log.Info("beginning product sync")

	sets, err := ts.fetchProductSets(ctx)
	if err != nil {
		return err
	}

	liveProducts := newLiveIndex(sets.liveProducts)

	for n := range sets.testProducts {
		testProduct := &sets.testProducts[n]

		if liveProduct := liveProducts.findLiveCounterpart(testProduct); liveProduct != nil {
			ts.skip(provider.KIND_PRODUCT, testProduct, liveProduct)
			continue
		}

		ts.log.Debugf("no live product found for %s, adding new product to live", testProduct.ID)

		err := ts.create(ctx, provider.KIND_PRODUCT, testProduct, newLiveProduct(testProduct))
		if err != nil {
			return err
		}
	}

	ts.log.Info("resyncing after product sync...")

	if err := ts.lease.Refresh(ctx); err != nil {
		return err
	}

	sets, err = ts.fetchProductSets(ctx)
	if err != nil {
		return err
	}

	if err := ts.syncPlans(ctx, sets); err != nil {
		return err
	}

	ts.log.Info("product sync completed")

	return nil
}

func (ts *tenantSync) syncPlans(ctx context.Context, sets *productSets) error {
	liveProducts := newLiveIndex(sets.liveProducts)
	livePlans := newLiveIndex(sets.livePlans)

	for n := range sets.testPlans {
		testPlan := &sets.testPlans[n]

		if livePlan := livePlans.findLiveCounterpart(testPlan); livePlan != nil {
			ts.skip(provider.KIND_PLAN, testPlan, livePlan)
			continue
		}

		ts.log.Debugf("no live plan found for %s, adding new plan to live", testPlan.ID)

		testProductID := productRef(testPlan)

		liveProduct := liveProducts.lookup(testProductID)
		if liveProduct == nil {
			return &MissingLiveProductError{
				TestPlanID:    testPlan.ID,
				TestProductID: testProductID,
			}
		}

		err := ts.create(ctx, provider.KIND_PLAN, testPlan, newLivePlan(testPlan, liveProduct))
		if err != nil {
			return err
		}
	}

	return nil
}
