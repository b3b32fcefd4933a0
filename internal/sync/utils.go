package sync

import (
	"github.com/newrelic/stripe-env-sync/internal/provider"
	"github.com/spf13/cast"
)

var (
	productFields = []string{"name", "type"}
	planFields    = []string{
		"active",
		"amount",
		"billing_scheme",
		"currency",
		"interval",
		"interval_count",
		"nickname",
		"usage_type",
	}
	customerFields = []string{"description", "email", "invoice_prefix"}
)

func copyFields(
	record *provider.Record,
	keys []string,
) map[string]interface{} {
	fields := make(map[string]interface{}, len(keys))

	for _, k := range keys {
		if v, ok := record.Fields[k]; ok && v != nil {
			fields[k] = v
		}
	}

	return fields
}

// productRef returns the product ID a plan points at. The field is either
// the bare ID or an expanded product object.
func productRef(plan *provider.Record) string {
	switch u := plan.Fields["product"].(type) {
	case map[string]interface{}:
		return cast.ToString(u["id"])

	case nil:
		return ""
	}

	return cast.ToString(plan.Fields["product"])
}

func newLiveProduct(testProduct *provider.Record) *provider.Record {
	return &provider.Record{
		Kind:   provider.KIND_PRODUCT,
		Fields: copyFields(testProduct, productFields),
		Metadata: map[string]string{
			provider.METADATA_TEST_ID: testProduct.ID,
		},
	}
}

func newLivePlan(
	testPlan *provider.Record,
	liveProduct *provider.Record,
) *provider.Record {
	fields := copyFields(testPlan, planFields)
	fields["product"] = liveProduct.ID

	return &provider.Record{
		Kind:   provider.KIND_PLAN,
		Fields: fields,
		Metadata: map[string]string{
			provider.METADATA_TEST_ID:         testPlan.ID,
			provider.METADATA_TEST_PRODUCT_ID: productRef(testPlan),
		},
	}
}

func newLiveCustomer(testCustomer *provider.Record) *provider.Record {
	return &provider.Record{
		Kind:   provider.KIND_CUSTOMER,
		Fields: copyFields(testCustomer, customerFields),
		Metadata: map[string]string{
			provider.METADATA_TEST_ID: testCustomer.ID,
		},
	}
}
