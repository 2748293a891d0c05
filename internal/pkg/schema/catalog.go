package schema

// CatalogVersion changes whenever a trigger is added or its variables change.
const CatalogVersion = 3

// NotificationTrigger is a catalogued business event.
type NotificationTrigger struct {
	Key               string
	RequiredVariables []string
	Type              NotificationType
}

// Catalog is the contract between business-event producers and the dispatch pipeline.
// Every trigger payload also carries "user_id", the recipient.
var Catalog = []NotificationTrigger{
	{Key: "gig_created", RequiredVariables: []string{"gig_title", "category"}, Type: NotificationTypeGigCreated},
	{Key: "gig_approved", RequiredVariables: []string{"gig_title"}, Type: NotificationTypeGigApproved},
	{Key: "gig_rejected", RequiredVariables: []string{"gig_title", "reason"}, Type: NotificationTypeGigRejected},
	{Key: "response_received", RequiredVariables: []string{"gig_title", "user_name"}, Type: NotificationTypeResponseReceived},
	{Key: "response_accepted", RequiredVariables: []string{"gig_title", "client_name"}, Type: NotificationTypeResponseAccepted},
	{Key: "response_rejected", RequiredVariables: []string{"gig_title"}, Type: NotificationTypeResponseRejected},
	{Key: "provider_application_submitted", RequiredVariables: []string{"user_name"}, Type: NotificationTypeProviderApplicationSubmitted},
	{Key: "provider_application_approved", RequiredVariables: []string{"user_name"}, Type: NotificationTypeProviderApplicationApproved},
	{Key: "provider_application_rejected", RequiredVariables: []string{"user_name", "reason"}, Type: NotificationTypeProviderApplicationRejected},
	{Key: "message_received", RequiredVariables: []string{"sender_name", "preview"}, Type: NotificationTypeMessageReceived},
	{Key: "payment_received", RequiredVariables: []string{"amount", "gig_title"}, Type: NotificationTypePaymentReceived},
	{Key: "review_received", RequiredVariables: []string{"rating", "gig_title"}, Type: NotificationTypeReviewReceived},
	{Key: "system_announcement", RequiredVariables: []string{"message"}, Type: NotificationTypeSystem},
}

var catalogIndex = func() map[string]NotificationTrigger {
	idx := make(map[string]NotificationTrigger, len(Catalog))
	for _, t := range Catalog {
		idx[t.Key] = t
	}
	return idx
}()

// LookupTrigger returns the catalog entry for key.
func LookupTrigger(key string) (NotificationTrigger, bool) {
	t, ok := catalogIndex[key]
	return t, ok
}
