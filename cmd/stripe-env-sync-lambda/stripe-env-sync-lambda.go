package main

import (
	"context"
	"fmt"

	_ "github.com/newrelic/stripe-env-sync/internal/provider/stripe"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/newrelic/stripe-env-sync/internal/sync"
	"github.com/newrelic/stripe-env-sync/internal/tenants"
	"github.com/newrelic/stripe-env-sync/pkg/interop"
)

type SyncRequest struct {
	Input string `json:"input"`
}

type SyncResult struct {
	Success bool     `json:"success"`
	Failed  []string `json:"failed,omitempty"`
	Message string   `json:"message,omitempty"`
}

func HandleRequest(ctx context.Context, req SyncRequest) (SyncResult, error) {
	i, err := interop.NewInteroperability("")
	if err != nil {
		retErr := fmt.Errorf("failed to create interop: %s", err)
		return SyncResult{Message: retErr.Error()}, retErr
	}

	defer i.Shutdown()

	var tenantList []tenants.Tenant

	if req.Input != "" {
		tenantList, err = tenants.Read(req.Input)
	} else {
		tenantList, err = tenants.FromConfig()
	}
	if err != nil {
		retErr := fmt.Errorf("failed to read tenants: %s", err)
		return SyncResult{Message: retErr.Error()}, retErr
	}

	syncer, err := sync.New(i)
	if err != nil {
		retErr := fmt.Errorf("sync failed: %s", err)
		return SyncResult{Message: retErr.Error()}, retErr
	}

	defer func() {
		if err := syncer.Close(); err != nil {
			i.Logger.Warnf("failed to close syncer: %s", err)
		}
	}()

	result, err := syncer.Sync(ctx, tenantList)
	if err != nil {
		retErr := fmt.Errorf("sync failed: %w", err)
		return SyncResult{Failed: result.Failed(), Message: retErr.Error()}, retErr
	}

	return SyncResult{Success: true}, nil
}

func main() {
	lambda.Start(HandleRequest)
}
