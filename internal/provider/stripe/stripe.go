package stripe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/newrelic/stripe-env-sync/internal/provider"
	"github.com/newrelic/stripe-env-sync/pkg/interop"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type AuthType string

const (
	AUTH_TYPE_BEARER AuthType = "bearer"
	AUTH_TYPE_BASIC  AuthType = "basic"
)

const (
	defaultApiURL   = "https://api.stripe.com"
	defaultPageSize = 100
	maxPageSize     = 100
	defaultTimeout  = 80 * time.Second
)

// idempotencyNamespace seeds the v5 UUIDs sent as Idempotency-Key.
var idempotencyNamespace = uuid.Must(
	uuid.FromString("0b7d5f8e-4c0a-5d43-9a57-6c3b1f0e2a91"),
)

type StripeProvider struct {
	Interop         *interop.Interop
	ApiURL          string
	ApiVersion      string
	AuthType        AuthType
	Credential      provider.Credential
	PageSize        int
	RetryMax        int
	Timeout         time.Duration
	IdempotencyKeys bool
	RunID           string

	client *http.Client
}

func init() {
	provider.RegisterProvider("stripe", New)
}

func New(
	i *interop.Interop,
	v *viper.Viper,
	credential provider.Credential,
) (provider.Catalog, error) {
	v.SetDefault("idempotencyKeys", true)

	apiUrl := strings.TrimSuffix(v.GetString("apiUrl"), "/")
	if apiUrl == "" {
		apiUrl = defaultApiURL
	}

	pageSize := v.GetInt("pageSize")
	if pageSize <= 0 {
		pageSize = defaultPageSize
	} else if pageSize > maxPageSize {
		return nil, fmt.Errorf(
			"invalid stripe page size %d: must be at most %d",
			pageSize,
			maxPageSize,
		)
	}

	retryMax := v.GetInt("retryMax")
	if retryMax < 0 {
		return nil, fmt.Errorf("invalid stripe retry max: %d", retryMax)
	}

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var authType AuthType

	s := strings.ToLower(v.GetString("authType"))
	if s == "" || s == string(AUTH_TYPE_BEARER) {
		authType = AUTH_TYPE_BEARER
	} else if s == string(AUTH_TYPE_BASIC) {
		authType = AUTH_TYPE_BASIC
	} else {
		return nil, fmt.Errorf("invalid authentication type: %s", s)
	}

	if credential.SecretKey == "" {
		return nil, fmt.Errorf("missing stripe secret key")
	}

	runID := credential.RunID
	if runID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		runID = id.String()
	}

	sp := &StripeProvider{
		Interop:         i,
		ApiURL:          apiUrl,
		ApiVersion:      v.GetString("apiVersion"),
		AuthType:        authType,
		Credential:      credential,
		PageSize:        pageSize,
		RetryMax:        retryMax,
		Timeout:         timeout,
		IdempotencyKeys: v.GetBool("idempotencyKeys"),
		RunID:           runID,
	}

	sp.client = sp.createHttpClient()

	return sp, nil
}

func (sp *StripeProvider) ListPage(
	ctx context.Context,
	kind provider.Kind,
	cursor string,
) (*provider.Page, error) {
	list, err := sp.getList(ctx, kind, cursor)
	if err != nil {
		return nil, fmt.Errorf("list %s failed: %w", kind, err)
	}

	page := &provider.Page{}
	lastID := ""

	for _, item := range list.Data {
		record, ok := toRecord(kind, item)
		if !ok {
			sp.Interop.Logger.Warnf("skipping %s with no id", kind)
			continue
		}

		page.Records = append(page.Records, *record)
		lastID = record.ID
	}

	if list.HasMore {
		if lastID == "" {
			return nil, fmt.Errorf(
				"list %s failed: more results reported but no record ids to page from",
				kind,
			)
		}
		page.NextCursor = lastID
	}

	return page, nil
}

func (sp *StripeProvider) Create(
	ctx context.Context,
	kind provider.Kind,
	record *provider.Record,
) (*provider.Record, error) {
	form, err := encodeForm(record)
	if err != nil {
		return nil, fmt.Errorf("encode %s failed: %w", kind, err)
	}

	idempotencyKey := ""
	if sp.IdempotencyKeys && record.TestID() != "" {
		idempotencyKey = newIdempotencyKey(sp.RunID, kind, record.TestID())
	}

	item, err := sp.post(ctx, kind, form, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("create %s failed: %w", kind, err)
	}

	created, ok := toRecord(kind, item)
	if !ok {
		return nil, fmt.Errorf("create %s failed: response has no id", kind)
	}

	return created, nil
}

// newIdempotencyKey is stable across retries within one run and differs
// between runs.
func newIdempotencyKey(runID string, kind provider.Kind, testID string) string {
	return uuid.NewV5(
		idempotencyNamespace,
		fmt.Sprintf("%s/%s/%s", runID, kind, testID),
	).String()
}

func toRecord(
	kind provider.Kind,
	item map[string]interface{},
) (*provider.Record, bool) {
	id := cast.ToString(item["id"])
	if id == "" {
		return nil, false
	}

	fields := make(map[string]interface{}, len(item))

	for k, v := range item {
		if k == "id" || k == "metadata" {
			continue
		}
		fields[k] = v
	}

	return &provider.Record{
		ID:       id,
		Kind:     kind,
		Fields:   fields,
		Metadata: cast.ToStringMapString(item["metadata"]),
	}, true
}
