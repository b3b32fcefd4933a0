package sync

import (
	"github.com/newrelic/stripe-env-sync/internal/provider"
)

type auditEvent map[string]interface{}

func (s *Syncer) newAuditEvent(
	action string,
	result *TenantResult,
	err error,
) auditEvent {
	event := auditEvent{}

	event["eventType"] = s.eventsConfig.EventType
	event["runId"] = s.runID.String()
	event["action"] = action
	event["error"] = err != nil
	if err != nil {
		event["errorMessage"] = err.Error()
	}

	if result != nil {
		event["tenant"] = result.Name

		for _, kind := range []provider.Kind{
			provider.KIND_PRODUCT,
			provider.KIND_PLAN,
			provider.KIND_CUSTOMER,
		} {
			event[string(kind)+"Created"] = result.Created[kind]
			event[string(kind)+"Skipped"] = result.Skipped[kind]
		}
	}

	return event
}

func (s *Syncer) pushEvent(event auditEvent) {
	if !s.eventsConfig.Enabled || s.i.NrClient == nil {
		return
	}

	if err := s.i.NrClient.Events.CreateEvent(
		s.eventsConfig.AccountId,
		event,
	); err != nil {
		s.log.Warnf("failed to push event: %s", err)
	}
}
