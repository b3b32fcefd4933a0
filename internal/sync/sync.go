package sync

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/newrelic/stripe-env-sync/internal/provider"
	"github.com/newrelic/stripe-env-sync/internal/tenants"
	"github.com/newrelic/stripe-env-sync/pkg/interop"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	ENV_TEST = "test"
	ENV_LIVE = "live"
)

type Syncer struct {
	i            *interop.Interop
	log          *log.Logger
	runID        uuid.UUID
	failFast     bool
	eventsConfig eventsConfig
	locker       Locker
}

type TenantResult struct {
	Name    string
	Created map[provider.Kind]int
	Skipped map[provider.Kind]int
	Err     error
}

type environment struct {
	name    string
	catalog provider.Catalog
}

// tenantSync holds the state of one tenant's run. Both catalogs are scoped
// to that tenant's credentials and are dropped when the run ends.
type tenantSync struct {
	log    *log.Entry
	test   environment
	live   environment
	lease  Lease
	result *TenantResult
}

func New(i *interop.Interop) (*Syncer, error) {
	// leaf reads so STRIPE_SYNC_* environment overrides apply
	failFast := true
	if viper.IsSet("batch.failFast") {
		failFast = viper.GetBool("batch.failFast")
	}

	events := eventsConfig{
		Enabled:   viper.GetBool("events.enabled"),
		AccountId: viper.GetInt("events.accountId"),
		EventType: viper.GetString("events.eventType"),
	}

	if events.EventType == "" {
		events.EventType = defaultEventType
	}

	if events.Enabled && events.AccountId == 0 {
		return nil, fmt.Errorf("events.accountId is required when events are enabled")
	}

	lock := lockConfig{
		RedisAddress:  viper.GetString("lock.redisAddress"),
		RedisPassword: viper.GetString("lock.redisPassword"),
		RedisDB:       viper.GetInt("lock.redisDB"),
		Prefix:        viper.GetString("lock.prefix"),
		TTL:           viper.GetDuration("lock.ttl"),
	}

	locker, err := newLocker(lock)
	if err != nil {
		return nil, err
	}

	runID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	return &Syncer{
		i:            i,
		log:          i.Logger,
		runID:        runID,
		failFast:     failFast,
		eventsConfig: events,
		locker:       locker,
	}, nil
}

func (s *Syncer) Close() error {
	return s.locker.Close()
}

// SyncTenant mirrors every test product, plan and customer of one tenant
// into its live account. The returned result is never nil.
func (s *Syncer) SyncTenant(
	ctx context.Context,
	tenant tenants.Tenant,
) (*TenantResult, error) {
	result := &TenantResult{
		Name:    tenant.Name,
		Created: map[provider.Kind]int{},
		Skipped: map[provider.Kind]int{},
	}

	txn := s.i.App.StartTransaction("syncTenant")
	defer txn.End()

	txn.AddAttribute("tenant", tenant.Name)
	ctx = newrelic.NewContext(ctx, txn)

	logger := s.log.WithContext(ctx).WithField("tenant", tenant.Name)
	logger.Infof("beginning process for building: %s", tenant.Name)

	s.pushEvent(s.newAuditEvent("tenant_start", result, nil))

	err := s.syncTenant(ctx, logger, tenant, result)
	if err != nil {
		err = fmt.Errorf("tenant %s: %w", tenant.Name, err)
		result.Err = err
		txn.NoticeError(err)
	}

	s.pushEvent(s.newAuditEvent("tenant_end", result, err))

	if err != nil {
		return result, err
	}

	logger.Info("building processed")

	return result, nil
}

func (s *Syncer) syncTenant(
	ctx context.Context,
	logger *log.Entry,
	tenant tenants.Tenant,
	result *TenantResult,
) error {
	testCatalog, err := provider.GetProvider(s.i, provider.Credential{
		Environment:    ENV_TEST,
		SecretKey:      tenant.TestSecretKey,
		PublishableKey: tenant.TestPublishableKey,
		RunID:          s.runID.String(),
	})
	if err != nil {
		return err
	}

	liveCatalog, err := provider.GetProvider(s.i, provider.Credential{
		Environment:    ENV_LIVE,
		SecretKey:      tenant.LiveSecretKey,
		PublishableKey: tenant.LivePublishableKey,
		RunID:          s.runID.String(),
	})
	if err != nil {
		return err
	}

	lease, err := s.locker.Obtain(ctx, tenant.Name)
	if err != nil {
		return err
	}

	defer func() {
		// the run context may already be canceled here
		if err := lease.Release(context.Background()); err != nil {
			logger.Warnf("failed to release tenant lock: %s", err)
		}
	}()

	ts := &tenantSync{
		log:    logger,
		test:   environment{ENV_TEST, testCatalog},
		live:   environment{ENV_LIVE, liveCatalog},
		lease:  lease,
		result: result,
	}

	if err := ts.syncProducts(ctx); err != nil {
		return err
	}

	if err := ts.lease.Refresh(ctx); err != nil {
		return err
	}

	return ts.syncCustomers(ctx)
}

func (ts *tenantSync) fetch(
	ctx context.Context,
	env environment,
	kind provider.Kind,
) ([]provider.Record, error) {
	records, err := readEntireSet(ctx, env.catalog, kind)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s failed: %w", env.name, kind, err)
	}

	ts.log.WithFields(log.Fields{
		"environment": env.name,
		"kind":        kind,
	}).Infof("%d %s found in %s environment", len(records), kind, env.name)

	return records, nil
}

func (ts *tenantSync) create(
	ctx context.Context,
	kind provider.Kind,
	testRecord *provider.Record,
	liveRecord *provider.Record,
) error {
	created, err := ts.live.catalog.Create(ctx, kind, liveRecord)
	if err != nil {
		return fmt.Errorf(
			"creating live %s for test record %s failed: %w",
			kind,
			testRecord.ID,
			err,
		)
	}

	ts.result.Created[kind] += 1

	ts.log.WithField("kind", kind).Debugf(
		"test record %s synced to live record %s",
		testRecord.ID,
		created.ID,
	)

	return nil
}

func (ts *tenantSync) skip(kind provider.Kind, testRecord, liveRecord *provider.Record) {
	ts.result.Skipped[kind] += 1

	ts.log.WithField("kind", kind).Debugf(
		"existing live record %s for test record %s - skipping",
		liveRecord.ID,
		testRecord.ID,
	)
}
