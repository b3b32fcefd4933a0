package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/newrelic/stripe-env-sync/internal/provider"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"golang.org/x/oauth2"
)

type listResponse struct {
	Data    []map[string]interface{} `json:"data"`
	HasMore bool                     `json:"has_more"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Param   string `json:"param"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is returned for any non-2xx Stripe response.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Param      string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf(
			"stripe error (status %d, %s/%s): %s",
			e.StatusCode,
			e.Type,
			e.Code,
			e.Message,
		)
	}

	return fmt.Sprintf(
		"stripe error (status %d, %s): %s",
		e.StatusCode,
		e.Type,
		e.Message,
	)
}

func (sp *StripeProvider) getList(
	ctx context.Context,
	kind provider.Kind,
	cursor string,
) (*listResponse, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(sp.PageSize))

	if cursor != "" {
		params.Set("starting_after", cursor)
	}

	u := fmt.Sprintf("%s/v1/%s?%s", sp.ApiURL, kind, params.Encode())

	sp.Interop.Logger.Tracef("making stripe request using URL %s...", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	list := &listResponse{}

	if err := sp.do(req, list); err != nil {
		return nil, err
	}

	return list, nil
}

func (sp *StripeProvider) post(
	ctx context.Context,
	kind provider.Kind,
	form url.Values,
	idempotencyKey string,
) (map[string]interface{}, error) {
	u := fmt.Sprintf("%s/v1/%s", sp.ApiURL, kind)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		u,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	var item map[string]interface{}

	if err := sp.do(req, &item); err != nil {
		return nil, err
	}

	return item, nil
}

func (sp *StripeProvider) do(req *http.Request, result interface{}) error {
	req.Header.Set("Accept", "application/json")

	if sp.ApiVersion != "" {
		req.Header.Set("Stripe-Version", sp.ApiVersion)
	}

	if sp.AuthType == AUTH_TYPE_BASIC {
		req.SetBasicAuth(sp.Credential.SecretKey, "")
	}

	resp, err := sp.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, body)
	}

	sp.Interop.Logger.Tracef(
		"read %d bytes, unmarshaling JSON...",
		len(body),
	)

	return json.Unmarshal(body, result)
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	errResp := errorResponse{}
	if err := json.Unmarshal(body, &errResp); err != nil ||
		errResp.Error.Message == "" {
		apiErr.Type = "unknown"
		apiErr.Message = resp.Status
		return apiErr
	}

	apiErr.Type = errResp.Error.Type
	apiErr.Code = errResp.Error.Code
	apiErr.Param = errResp.Error.Param
	apiErr.Message = errResp.Error.Message

	return apiErr
}

func (sp *StripeProvider) createHttpClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = sp.RetryMax
	retryClient.HTTPClient.Timeout = sp.Timeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &leveledLogger{
		sp.Interop.Logger.WithField("environment", sp.Credential.Environment),
	}

	if sp.AuthType == AUTH_TYPE_BASIC {
		return retryClient.StandardClient()
	}

	ctx := context.WithValue(
		context.Background(),
		oauth2.HTTPClient,
		retryClient.StandardClient(),
	)

	return oauth2.NewClient(
		ctx,
		oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: sp.Credential.SecretKey,
			TokenType:   "Bearer",
		}),
	)
}

func encodeForm(record *provider.Record) (url.Values, error) {
	form := url.Values{}

	for k, v := range record.Fields {
		if err := appendFormValue(form, k, v); err != nil {
			return nil, err
		}
	}

	for k, v := range record.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	return form, nil
}

func appendFormValue(form url.Values, key string, value interface{}) error {
	switch u := value.(type) {
	case nil:
		return nil

	case map[string]interface{}:
		keys := make([]string, 0, len(u))
		for k := range u {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			err := appendFormValue(form, fmt.Sprintf("%s[%s]", key, k), u[k])
			if err != nil {
				return err
			}
		}
		return nil

	case []interface{}:
		for index, item := range u {
			err := appendFormValue(form, fmt.Sprintf("%s[%d]", key, index), item)
			if err != nil {
				return err
			}
		}
		return nil
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}

	form.Set(key, s)

	return nil
}

type leveledLogger struct {
	entry *log.Entry
}

func (l *leveledLogger) fields(keysAndValues []interface{}) *log.Entry {
	entry := l.entry
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		entry = entry.WithField(
			cast.ToString(keysAndValues[i]),
			keysAndValues[i+1],
		)
	}
	return entry
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Trace(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
