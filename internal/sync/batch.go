package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newrelic/stripe-env-sync/internal/tenants"
)

type BatchResult struct {
	Tenants []TenantResult
}

func (r *BatchResult) Failed() []string {
	failed := []string{}

	for _, tenant := range r.Tenants {
		if tenant.Err != nil {
			failed = append(failed, tenant.Name)
		}
	}

	return failed
}

// Sync runs every tenant in order. With batch.failFast (the default) the
// first tenant error stops the batch; otherwise the remaining tenants still
// run and the failures are returned together.
func (s *Syncer) Sync(
	ctx context.Context,
	tenantList []tenants.Tenant,
) (*BatchResult, error) {
	result := &BatchResult{}

	s.log.Infof("beginning sync of %d tenants", len(tenantList))
	s.pushEvent(s.newAuditEvent("sync_start", nil, nil))

	errs := []error{}

	for _, tenant := range tenantList {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		tenantResult, err := s.SyncTenant(ctx, tenant)
		result.Tenants = append(result.Tenants, *tenantResult)

		if err == nil {
			continue
		}

		errs = append(errs, err)

		if s.failFast {
			break
		}

		s.log.Errorf("%s, continuing with next tenant", err)
	}

	err := s.batchError(result, errs)

	s.pushEvent(s.newAuditEvent("sync_end", nil, err))

	if err != nil {
		return result, err
	}

	s.log.Infof("sync of %d tenants completed", len(tenantList))

	return result, nil
}

func (s *Syncer) batchError(result *BatchResult, errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if s.failFast {
		return errs[0]
	}

	failed := result.Failed()
	if len(failed) == 0 {
		return errors.Join(errs...)
	}

	return fmt.Errorf(
		"%d tenants failed (%s): %w",
		len(failed),
		strings.Join(failed, ", "),
		errors.Join(errs...),
	)
}
