package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/newrelic/stripe-env-sync/pkg/interop"
	"github.com/spf13/viper"
)

type Kind string

const (
	KIND_PRODUCT  Kind = "products"
	KIND_PLAN     Kind = "plans"
	KIND_CUSTOMER Kind = "customers"
)

// Metadata keys stamped on live records.
const (
	METADATA_TEST_ID         = "test_id"
	METADATA_TEST_PRODUCT_ID = "test_product_id"
)

type Record struct {
	ID       string
	Kind     Kind
	Fields   map[string]interface{}
	Metadata map[string]string
}

type Page struct {
	Records    []Record
	NextCursor string
}

type Credential struct {
	Environment    string
	SecretKey      string
	PublishableKey string
	// RunID identifies the sync run the client is created for.
	RunID string
}

// Catalog is a client bound to a single account credential.
type Catalog interface {
	ListPage(ctx context.Context, kind Kind, cursor string) (*Page, error)
	Create(ctx context.Context, kind Kind, record *Record) (*Record, error)
}

type InitFn func(*interop.Interop, *viper.Viper, Credential) (Catalog, error)

var (
	initFns      map[string]InitFn
	providerLock sync.Mutex
)

func GetProvider(i *interop.Interop, credential Credential) (Catalog, error) {
	providerType := viper.GetString("provider.type")
	if providerType == "" {
		providerType = "stripe"
	}

	i.Logger.Tracef(
		"getting %s provider for %s environment...",
		providerType,
		credential.Environment,
	)

	providerLock.Lock()
	defer providerLock.Unlock()

	fn, ok := initFns[providerType]
	if !ok {
		return nil, fmt.Errorf("invalid provider: %s", providerType)
	}

	v := viper.Sub("provider")
	if v == nil {
		v = viper.New()
	}

	// Sub drops the root's environment bindings
	interop.SetupEnv(v, interop.EnvPrefix+"_PROVIDER")

	return fn(i, v, credential)
}

func RegisterProvider(t string, initFn InitFn) {
	providerLock.Lock()
	defer providerLock.Unlock()

	if initFns == nil {
		initFns = make(map[string]InitFn)
	}

	initFns[t] = initFn
}

func (r *Record) TestID() string {
	if r.Metadata == nil {
		return ""
	}

	return r.Metadata[METADATA_TEST_ID]
}
