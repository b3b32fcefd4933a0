package sync

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/newrelic/stripe-env-sync/internal/provider"
	"github.com/newrelic/stripe-env-sync/internal/tenants"
	"github.com/newrelic/stripe-env-sync/pkg/interop"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// fakeAccount is an in-memory Stripe account keyed by secret key.
type fakeAccount struct {
	prefix    string
	pageSize  int
	records   map[provider.Kind][]provider.Record
	nextID    int
	creates   int
	listErr   error
	createErr error
}

type fakeCatalog struct {
	account *fakeAccount
}

var fakeAccounts = map[string]*fakeAccount{}

func init() {
	provider.RegisterProvider(
		"memory",
		func(
			i *interop.Interop,
			v *viper.Viper,
			credential provider.Credential,
		) (provider.Catalog, error) {
			account, ok := fakeAccounts[credential.SecretKey]
			if !ok {
				return nil, fmt.Errorf("no such account: %s", credential.Environment)
			}
			return &fakeCatalog{account}, nil
		},
	)
}

func newFakeAccount(t *testing.T, secretKey string, prefix string) *fakeAccount {
	account := &fakeAccount{
		prefix:   prefix,
		pageSize: 2,
		records:  map[provider.Kind][]provider.Record{},
	}

	fakeAccounts[secretKey] = account
	t.Cleanup(func() { delete(fakeAccounts, secretKey) })

	return account
}

func (a *fakeAccount) add(kind provider.Kind, record provider.Record) {
	record.Kind = kind
	a.records[kind] = append(a.records[kind], record)
}

func (a *fakeAccount) withTestID(kind provider.Kind, testID string) []provider.Record {
	matches := []provider.Record{}
	for _, record := range a.records[kind] {
		if record.TestID() == testID {
			matches = append(matches, record)
		}
	}
	return matches
}

func (c *fakeCatalog) ListPage(
	ctx context.Context,
	kind provider.Kind,
	cursor string,
) (*provider.Page, error) {
	if c.account.listErr != nil {
		return nil, c.account.listErr
	}

	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}

	records := c.account.records[kind]
	end := start + c.account.pageSize
	if end > len(records) {
		end = len(records)
	}

	page := &provider.Page{}
	for _, record := range records[start:end] {
		page.Records = append(page.Records, cloneRecord(record))
	}

	if end < len(records) {
		page.NextCursor = strconv.Itoa(end)
	}

	return page, nil
}

func (c *fakeCatalog) Create(
	ctx context.Context,
	kind provider.Kind,
	record *provider.Record,
) (*provider.Record, error) {
	if c.account.createErr != nil {
		return nil, c.account.createErr
	}

	c.account.nextID += 1
	c.account.creates += 1

	created := cloneRecord(*record)
	created.ID = fmt.Sprintf("%s_%s_%d", c.account.prefix, kind, c.account.nextID)
	created.Kind = kind

	c.account.records[kind] = append(c.account.records[kind], created)

	result := cloneRecord(created)
	return &result, nil
}

func cloneRecord(record provider.Record) provider.Record {
	clone := provider.Record{
		ID:       record.ID,
		Kind:     record.Kind,
		Fields:   map[string]interface{}{},
		Metadata: map[string]string{},
	}

	for k, v := range record.Fields {
		clone.Fields[k] = v
	}

	for k, v := range record.Metadata {
		clone.Metadata[k] = v
	}

	return clone
}

type fakeTenant struct {
	tenant tenants.Tenant
	test   *fakeAccount
	live   *fakeAccount
}

func newFakeTenant(t *testing.T, name string) *fakeTenant {
	tenant := tenants.Tenant{
		Name:          name,
		TestSecretKey: "sk_test_" + name,
		LiveSecretKey: "sk_live_" + name,
	}

	return &fakeTenant{
		tenant: tenant,
		test:   newFakeAccount(t, tenant.TestSecretKey, "test_"+name),
		live:   newFakeAccount(t, tenant.LiveSecretKey, "live_"+name),
	}
}

func newTestSyncer(t *testing.T) (*Syncer, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	viper.Set("provider.type", "memory")
	t.Cleanup(viper.Reset)

	s, err := New(&interop.Interop{Logger: logger})
	require.NoError(t, err)

	return s, hook
}
