package sync

import (
	"context"
	"testing"

	"github.com/newrelic/stripe-env-sync/internal/provider"
	"github.com/newrelic/stripe-env-sync/internal/tenants"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brokenTenant(ft *fakeTenant) {
	ft.test.add(provider.KIND_PLAN, provider.Record{
		ID:     "plan_orphan",
		Fields: map[string]interface{}{"product": "prod_missing"},
	})
}

func TestSync_RunsEveryTenant(t *testing.T) {
	s, _ := newTestSyncer(t)

	first := newFakeTenant(t, "first")
	second := newFakeTenant(t, "second")
	seedCatalog(first)
	seedCatalog(second)

	result, err := s.Sync(
		context.Background(),
		[]tenants.Tenant{first.tenant, second.tenant},
	)
	require.NoError(t, err)

	require.Len(t, result.Tenants, 2)
	assert.Equal(t, "first", result.Tenants[0].Name)
	assert.Equal(t, "second", result.Tenants[1].Name)
	assert.Empty(t, result.Failed())

	assert.Equal(t, 3, first.live.creates)
	assert.Equal(t, 3, second.live.creates)
}

func TestSync_FailFastStopsBatch(t *testing.T) {
	s, _ := newTestSyncer(t)
	require.True(t, s.failFast)

	first := newFakeTenant(t, "first")
	second := newFakeTenant(t, "second")
	brokenTenant(first)
	seedCatalog(second)

	result, err := s.Sync(
		context.Background(),
		[]tenants.Tenant{first.tenant, second.tenant},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLiveProduct)

	require.Len(t, result.Tenants, 1)
	assert.Equal(t, []string{"first"}, result.Failed())
	assert.Equal(t, 0, second.live.creates)
}

func TestSync_ContinueOnErrorIsolatesTenants(t *testing.T) {
	viper.Set("batch.failFast", false)
	s, _ := newTestSyncer(t)
	require.False(t, s.failFast)

	first := newFakeTenant(t, "first")
	second := newFakeTenant(t, "second")
	brokenTenant(first)
	seedCatalog(second)

	result, err := s.Sync(
		context.Background(),
		[]tenants.Tenant{first.tenant, second.tenant},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLiveProduct)
	assert.Contains(t, err.Error(), "1 tenants failed (first)")

	require.Len(t, result.Tenants, 2)
	assert.Equal(t, []string{"first"}, result.Failed())
	assert.NoError(t, result.Tenants[1].Err)
	assert.Equal(t, 3, second.live.creates)
}

func TestSync_UnknownAccountFailsTenant(t *testing.T) {
	s, _ := newTestSyncer(t)

	tenant := tenants.Tenant{
		Name:          "ghost",
		TestSecretKey: "sk_test_ghost",
		LiveSecretKey: "sk_live_ghost",
	}

	result, err := s.Sync(context.Background(), []tenants.Tenant{tenant})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant ghost")
	assert.Equal(t, []string{"ghost"}, result.Failed())
}

func TestSync_CanceledContext(t *testing.T) {
	s, _ := newTestSyncer(t)

	ft := newFakeTenant(t, "acme")
	seedCatalog(ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Sync(ctx, []tenants.Tenant{ft.tenant})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Tenants)
	assert.Equal(t, 0, ft.live.creates)
}
