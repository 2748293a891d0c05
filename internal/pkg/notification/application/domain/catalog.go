package notification

import (
	"gigpulse/internal/pkg/schema"
)

// CheckPayload validates a trigger payload against the catalog. It never
// fails: problems come back as warnings for the caller to log.
func CheckPayload(triggerKey string, payload map[string]string) []schema.TemplateResolutionWarning {
	trigger, ok := schema.LookupTrigger(triggerKey)
	if !ok {
		return []schema.TemplateResolutionWarning{{Trigger: triggerKey, Reason: "trigger not in catalog"}}
	}
	var missing []string
	for _, v := range trigger.RequiredVariables {
		if _, ok := payload[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []schema.TemplateResolutionWarning{{Trigger: triggerKey, Missing: missing, Reason: "payload lacks required variables"}}
}

// TypeFor maps a trigger key onto the notification type the UI renders.
func TypeFor(triggerKey string) schema.NotificationType {
	if trigger, ok := schema.LookupTrigger(triggerKey); ok {
		return trigger.Type
	}
	return schema.ParseNotificationType(triggerKey)
}

// Data copies the payload minus the routing keys; it is stored on the notification.
func Data(payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == EmailKey {
			continue
		}
		out[k] = v
	}
	return out
}
