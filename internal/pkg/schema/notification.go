package schema

import (
	"fmt"
	"strings"
	"time"
)

// Channel is a notification delivery medium.
type Channel string

const (
	ChannelApp   Channel = "app"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// AllChannels lists the channels in dispatch order.
var AllChannels = []Channel{ChannelApp, ChannelPush, ChannelEmail}

// ParseChannel maps a configuration or storage string onto a Channel.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelApp, ChannelPush, ChannelEmail:
		return c, nil
	case "in_app", "in-app", "inapp":
		return ChannelApp, nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// Audience is the inbox side a notification belongs to. One user may hold both a
// client and a provider inbox.
type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceClient   Audience = "client"
	AudienceProvider Audience = "provider"
)

// NotificationType is the closed set of notification kinds the UI knows how to render.
type NotificationType string

const (
	NotificationTypeUnknown                      NotificationType = "unknown"
	NotificationTypeGigCreated                   NotificationType = "gig_created"
	NotificationTypeGigApproved                  NotificationType = "gig_approved"
	NotificationTypeGigRejected                  NotificationType = "gig_rejected"
	NotificationTypeResponseReceived             NotificationType = "response_received"
	NotificationTypeResponseAccepted             NotificationType = "response_accepted"
	NotificationTypeResponseRejected             NotificationType = "response_rejected"
	NotificationTypeProviderApplicationSubmitted NotificationType = "provider_application_submitted"
	NotificationTypeProviderApplicationApproved  NotificationType = "provider_application_approved"
	NotificationTypeProviderApplicationRejected  NotificationType = "provider_application_rejected"
	NotificationTypeMessageReceived              NotificationType = "message_received"
	NotificationTypePaymentReceived              NotificationType = "payment_received"
	NotificationTypeReviewReceived               NotificationType = "review_received"
	NotificationTypeSystem                       NotificationType = "system"
)

// Appearance is the icon and color the UI uses for a notification type.
type Appearance struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type typeInfo struct {
	audience   Audience
	appearance Appearance
}

var notificationTypes = map[NotificationType]typeInfo{
	NotificationTypeGigCreated:                   {AudienceProvider, Appearance{"briefcase", "blue"}},
	NotificationTypeGigApproved:                  {AudienceClient, Appearance{"check-circle", "green"}},
	NotificationTypeGigRejected:                  {AudienceClient, Appearance{"x-circle", "red"}},
	NotificationTypeResponseReceived:             {AudienceClient, Appearance{"inbox", "blue"}},
	NotificationTypeResponseAccepted:             {AudienceProvider, Appearance{"thumbs-up", "green"}},
	NotificationTypeResponseRejected:             {AudienceProvider, Appearance{"thumbs-down", "orange"}},
	NotificationTypeProviderApplicationSubmitted: {AudienceProvider, Appearance{"file-text", "blue"}},
	NotificationTypeProviderApplicationApproved:  {AudienceProvider, Appearance{"award", "green"}},
	NotificationTypeProviderApplicationRejected:  {AudienceProvider, Appearance{"alert-triangle", "red"}},
	NotificationTypeMessageReceived:              {AudienceAll, Appearance{"message-circle", "purple"}},
	NotificationTypePaymentReceived:              {AudienceProvider, Appearance{"credit-card", "green"}},
	NotificationTypeReviewReceived:               {AudienceProvider, Appearance{"star", "yellow"}},
	NotificationTypeSystem:                       {AudienceAll, Appearance{"bell", "gray"}},
}

// ParseNotificationType never fails: unrecognized strings map to NotificationTypeUnknown.
func ParseNotificationType(s string) NotificationType {
	t := NotificationType(strings.TrimSpace(s))
	if _, ok := notificationTypes[t]; ok {
		return t
	}
	return NotificationTypeUnknown
}

// Appearance returns the UI icon/color for t.
func (t NotificationType) Appearance() Appearance {
	if info, ok := notificationTypes[t]; ok {
		return info.appearance
	}
	return Appearance{Icon: "bell", Color: "gray"}
}

// Audience returns the inbox side t belongs to.
func (t NotificationType) Audience() Audience {
	if info, ok := notificationTypes[t]; ok {
		return info.audience
	}
	return AudienceAll
}

// TypesFor lists the notification types visible in the audience's inbox.
// AudienceAll types show up in both inboxes.
func TypesFor(a Audience) []NotificationType {
	out := make([]NotificationType, 0, len(notificationTypes)+1)
	for t, info := range notificationTypes {
		if a == AudienceAll || info.audience == a || info.audience == AudienceAll {
			out = append(out, t)
		}
	}
	if a == AudienceAll {
		out = append(out, NotificationTypeUnknown)
	}
	return out
}

// NotificationTemplate is the per-(trigger, channel) content template.
type NotificationTemplate struct {
	ID             string    `json:"id" db:"id"`
	TriggerKey     string    `json:"trigger_key" db:"trigger_key"`
	Channel        Channel   `json:"channel" db:"channel"`
	SubjectOrTitle string    `json:"subject_or_title" db:"subject_or_title"`
	Body           string    `json:"body" db:"body"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Notification is a delivered notification record.
type Notification struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Title     string            `json:"title" db:"title"`
	Body      string            `json:"body" db:"body"`
	Type      NotificationType  `json:"type" db:"type"`
	Channel   Channel           `json:"channel" db:"channel"`
	Read      bool              `json:"read" db:"read"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	Data      map[string]string `json:"data,omitempty" db:"data"`
}

// DeviceToken is a push token registered by a user's device.
type DeviceToken struct {
	UserID     string    `json:"user_id" db:"user_id"`
	Token      string    `json:"token" db:"token"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	DeviceInfo string    `json:"device_info" db:"device_info"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at"`
}
