package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cache "gigpulse/internal/infrastructure/cache/adapter"
	"gigpulse/internal/pkg/notification/persistence/repository/adapter"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type recordSender struct {
	channel schema.Channel
	err     error

	mu    sync.Mutex
	sent  []schema.Notification
	htmls []string
}

func (s *recordSender) Channel() schema.Channel { return s.channel }

func (s *recordSender) Send(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, d.Notification)
	s.htmls = append(s.htmls, d.HTML)
	return nil
}

func (s *recordSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type pipeline struct {
	dispatch  *DispatchUseCase
	repo      *adapter.MemoryNotificationRepository
	templates *adapter.MemoryTemplateRepository
	app       *recordSender
	push      *recordSender
	email     *recordSender
	logs      *observer.ObservedLogs
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T, templates ...schema.NotificationTemplate) *pipeline {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	repo := adapter.NewMemoryNotificationRepository()
	tplRepo := adapter.NewMemoryTemplateRepository(templates...)
	resolver := NewCachedTemplateResolver(tplRepo, cache.NewMemoryCache(), time.Minute, logger)
	p := &pipeline{
		repo:      repo,
		templates: tplRepo,
		app:       &recordSender{channel: schema.ChannelApp},
		push:      &recordSender{channel: schema.ChannelPush},
		email:     &recordSender{channel: schema.ChannelEmail},
		logs:      logs,
	}
	p.dispatch = NewDispatchUseCase(repo, resolver, schema.AllChannels, logger, p.app, p.push, p.email)
	p.dispatch.Now = func() time.Time { return t0 }
	seq := 0
	p.dispatch.NewID = func() string {
		seq++
		return fmt.Sprintf("n-%02d", seq)
	}
	return p
}

func (p *pipeline) warnings(msg string) []observer.LoggedEntry {
	return p.logs.FilterMessage(msg).FilterLevelExact(zapcore.WarnLevel).All()
}

func appTemplate(id, trigger, title, body string, updated time.Time) schema.NotificationTemplate {
	return schema.NotificationTemplate{
		ID: id, TriggerKey: trigger, Channel: schema.ChannelApp,
		SubjectOrTitle: title, Body: body, IsActive: true, UpdatedAt: updated,
	}
}

func TestDispatch_ResponseReceived(t *testing.T) {
	p := newPipeline(t, appTemplate("tpl-1", "response_received",
		"New response", "{{user_name}} received a response to {{gig_title}}", t0))

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "response_received",
		Payload:    map[string]string{"user_id": "client-1", "gig_title": "Fix sink", "user_name": "Maria"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)

	n := ns[0]
	assert.Equal(t, "Maria received a response to Fix sink", n.Body)
	assert.Equal(t, "New response", n.Title)
	assert.Equal(t, "client-1", n.UserID)
	assert.Equal(t, schema.ChannelApp, n.Channel)
	assert.Equal(t, schema.NotificationTypeResponseReceived, n.Type)
	assert.False(t, n.Read)
	assert.Equal(t, "Fix sink", n.Data["gig_title"])

	stored, err := p.repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored)
	assert.Equal(t, 1, p.app.count())
	assert.Zero(t, p.push.count())
	assert.Empty(t, p.warnings("template resolution"))
}

func TestDispatch_FallbackWhenNoTemplate(t *testing.T) {
	p := newPipeline(t)

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "system_announcement",
		Payload:    map[string]string{"user_id": "u1", "message": "Maintenance at 2am"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "System announcement", ns[0].Title)
	assert.Equal(t, "message: Maintenance at 2am", ns[0].Body)
	assert.Equal(t, schema.ChannelApp, ns[0].Channel)
	assert.Equal(t, 1, p.app.count())

	w := p.warnings("template resolution")
	require.Len(t, w, 1)
	assert.Equal(t, "no active template, using fallback", w[0].ContextMap()["reason"])
}

func TestDispatch_FallbackForEveryCatalogTrigger(t *testing.T) {
	p := newPipeline(t)
	for _, trigger := range schema.Catalog {
		ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
			TriggerKey: trigger.Key,
			Payload:    map[string]string{"user_id": "u1"},
		})
		require.NoError(t, err, trigger.Key)
		require.NotEmpty(t, ns, trigger.Key)
		assert.NotEmpty(t, ns[0].Title, trigger.Key)
		assert.NotEmpty(t, ns[0].Body, trigger.Key)
	}
}

func TestDispatch_UncataloguedTriggerStillDelivers(t *testing.T) {
	p := newPipeline(t)

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_cancelled",
		Payload:    map[string]string{"user_id": "u1"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, schema.NotificationTypeUnknown, ns[0].Type)
	assert.Equal(t, "Gig cancelled", ns[0].Title)

	var reasons []any
	for _, e := range p.warnings("template resolution") {
		reasons = append(reasons, e.ContextMap()["reason"])
	}
	assert.Contains(t, reasons, "trigger not in catalog")
}

func TestDispatch_MissingVariablesAreEmpty(t *testing.T) {
	p := newPipeline(t, appTemplate("tpl-1", "gig_rejected",
		"{{gig_title}} was rejected", "Reason: {{reason}}", t0))

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_rejected",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "Fix sink"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Reason: ", ns[0].Body)

	w := p.warnings("template resolution")
	require.Len(t, w, 2) // one from the catalog check, one from rendering
}

func TestDispatch_ChannelFailureIsIsolated(t *testing.T) {
	tpls := []schema.NotificationTemplate{
		appTemplate("a", "gig_approved", "Approved", "{{gig_title}} is live", t0),
		{ID: "p", TriggerKey: "gig_approved", Channel: schema.ChannelPush, SubjectOrTitle: "Approved", Body: "{{gig_title}}", IsActive: true, UpdatedAt: t0},
		{ID: "e", TriggerKey: "gig_approved", Channel: schema.ChannelEmail, SubjectOrTitle: "Approved", Body: "<p>{{gig_title}}</p>", IsActive: true, UpdatedAt: t0},
	}
	p := newPipeline(t, tpls...)
	p.push.err = errors.New("push gateway unreachable")

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_approved",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "Fix <sink>"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 3)
	assert.Equal(t, 1, p.app.count())
	assert.Equal(t, 1, p.email.count())

	byChannel := map[schema.Channel]schema.Notification{}
	for _, n := range ns {
		byChannel[n.Channel] = n
	}
	assert.Equal(t, "Fix <sink> is live", byChannel[schema.ChannelApp].Body)
	assert.Equal(t, "<p>Fix <sink></p>", byChannel[schema.ChannelEmail].Body, "stored rows keep raw values")
	assert.Equal(t, []string{"<p>Fix &lt;sink&gt;</p>"}, p.email.htmls)

	failed := p.warnings("notification delivery failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "push", failed[0].ContextMap()["channel"])
}

func TestDispatch_DisabledChannelsAreSkipped(t *testing.T) {
	p := newPipeline(t,
		appTemplate("a", "gig_approved", "Approved", "live", t0),
		schema.NotificationTemplate{ID: "e", TriggerKey: "gig_approved", Channel: schema.ChannelEmail, SubjectOrTitle: "Approved", Body: "live", IsActive: true, UpdatedAt: t0},
	)
	p.dispatch.Channels = []schema.Channel{schema.ChannelEmail}

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_approved",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "x"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, schema.ChannelEmail, ns[0].Channel)
	assert.Zero(t, p.app.count())
}

func TestDispatch_AmbiguousTemplatesPickNewest(t *testing.T) {
	p := newPipeline(t,
		appTemplate("old", "gig_approved", "Old", "old body", t0),
		appTemplate("new", "gig_approved", "New", "new body", t0.Add(time.Hour)),
	)

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_approved",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "x"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "new body", ns[0].Body)
	assert.Len(t, p.warnings("multiple active templates, using the most recently updated"), 1)
}

func TestDispatch_TemplatesAreCached(t *testing.T) {
	p := newPipeline(t, appTemplate("a", "gig_approved", "Approved", "live", t0))
	in := DispatchInput{TriggerKey: "gig_approved", Payload: map[string]string{"user_id": "u1", "gig_title": "x"}}

	_, err := p.dispatch.Execute(context.Background(), in)
	require.NoError(t, err)
	calls := p.templates.Calls()
	assert.Equal(t, len(schema.AllChannels), calls)

	_, err = p.dispatch.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, calls, p.templates.Calls())
}

func TestDispatch_Errors(t *testing.T) {
	p := newPipeline(t)

	_, err := p.dispatch.Execute(context.Background(), DispatchInput{TriggerKey: "gig_approved", Payload: map[string]string{}})
	assert.True(t, schema.IsValidation(err))

	_, err = p.dispatch.Execute(context.Background(), DispatchInput{Payload: map[string]string{"user_id": "u1"}})
	assert.True(t, schema.IsValidation(err))

	p.repo.Err = errors.New("db down")
	_, err = p.dispatch.Execute(context.Background(), DispatchInput{TriggerKey: "gig_approved", Payload: map[string]string{"user_id": "u1"}})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Zero(t, p.app.count())
}

func TestDispatch_TemplateStoreFailureFallsBack(t *testing.T) {
	p := newPipeline(t)
	p.templates.Err = errors.New("db down")

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_approved",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "x"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Gig approved", ns[0].Title)
}

func seed(t *testing.T, repo *adapter.MemoryNotificationRepository, ns ...schema.Notification) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), ns))
}

func TestMarkAsRead(t *testing.T) {
	repo := adapter.NewMemoryNotificationRepository()
	seed(t, repo, schema.Notification{ID: "n1", UserID: "u1", Type: schema.NotificationTypeSystem})
	uc := NewMarkAsReadUseCase(repo)
	ctx := context.Background()

	require.NoError(t, uc.Execute(ctx, MarkAsReadInput{NotificationID: "n1", UserID: "u1"}))
	require.NoError(t, uc.Execute(ctx, MarkAsReadInput{NotificationID: "n1", UserID: "u1"}))
	n, _ := repo.Get(ctx, "n1")
	assert.True(t, n.Read)

	assert.ErrorIs(t, uc.Execute(ctx, MarkAsReadInput{NotificationID: "n1", UserID: "u2"}), schema.ErrForbidden)
	assert.ErrorIs(t, uc.Execute(ctx, MarkAsReadInput{NotificationID: "nope"}), schema.ErrNotFound)
	assert.True(t, schema.IsValidation(uc.Execute(ctx, MarkAsReadInput{})))
}

func TestMarkAllAsRead_Scope(t *testing.T) {
	repo := adapter.NewMemoryNotificationRepository()
	seed(t, repo,
		schema.Notification{ID: "c1", UserID: "u1", Type: schema.NotificationTypeResponseReceived},
		schema.Notification{ID: "p1", UserID: "u1", Type: schema.NotificationTypeResponseAccepted},
		schema.Notification{ID: "m1", UserID: "u1", Type: schema.NotificationTypeMessageReceived},
		schema.Notification{ID: "x1", UserID: "u2", Type: schema.NotificationTypeResponseAccepted},
	)
	uc := NewMarkAllAsReadUseCase(repo)
	ctx := context.Background()

	n, err := uc.Execute(ctx, MarkAllAsReadInput{UserID: "u1", Scope: schema.AudienceProvider})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n) // provider type plus the shared message type

	c1, _ := repo.Get(ctx, "c1")
	assert.False(t, c1.Read)
	x1, _ := repo.Get(ctx, "x1")
	assert.False(t, x1.Read)

	n, err = uc.Execute(ctx, MarkAllAsReadInput{UserID: "u1", Scope: schema.AudienceProvider})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = uc.Execute(ctx, MarkAllAsReadInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = uc.Execute(ctx, MarkAllAsReadInput{UserID: "u1", Scope: "admin"})
	assert.True(t, schema.IsValidation(err))
}

func TestListNotifications(t *testing.T) {
	repo := adapter.NewMemoryNotificationRepository()
	seed(t, repo,
		schema.Notification{ID: "a", UserID: "u1", Type: schema.NotificationTypeGigApproved, CreatedAt: t0},
		schema.Notification{ID: "b", UserID: "u1", Type: schema.NotificationTypeGigCreated, CreatedAt: t0.Add(time.Minute), Read: true},
		schema.Notification{ID: "c", UserID: "u1", Type: schema.NotificationTypeSystem, CreatedAt: t0.Add(2 * time.Minute)},
	)
	uc := NewListNotificationsUseCase(repo)
	ctx := context.Background()

	all, err := uc.Execute(ctx, ListNotificationsInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	unread, err := uc.Execute(ctx, ListNotificationsInput{UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(unread))

	client, err := uc.Execute(ctx, ListNotificationsInput{UserID: "u1", Scope: schema.AudienceClient})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(client))

	none, err := uc.Execute(ctx, ListNotificationsInput{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func ids(ns []schema.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func TestRegisterToken(t *testing.T) {
	repo := adapter.NewMemoryDeviceTokenRepository()
	register := NewRegisterTokenUseCase(repo)
	deactivate := NewDeactivateTokenUseCase(repo)
	ctx := context.Background()

	_, err := register.Execute(ctx, RegisterTokenInput{UserID: "u1", Token: "tok-1", DeviceInfo: "ios"})
	require.NoError(t, err)
	_, err = register.Execute(ctx, RegisterTokenInput{UserID: "u1", Token: "tok-1", DeviceInfo: "ios"})
	require.NoError(t, err)
	require.Len(t, repo.All(), 1)

	require.NoError(t, deactivate.Execute(ctx, DeactivateTokenInput{Token: "tok-1"}))
	active, _ := repo.ListActive(ctx, "u1")
	assert.Empty(t, active)
	require.Len(t, repo.All(), 1, "deactivation keeps the row")

	_, err = register.Execute(ctx, RegisterTokenInput{UserID: "u1", Token: "tok-1"})
	require.NoError(t, err)
	active, _ = repo.ListActive(ctx, "u1")
	assert.Len(t, active, 1, "registering again reactivates")

	// the device changed hands
	_, err = register.Execute(ctx, RegisterTokenInput{UserID: "u2", Token: "tok-1"})
	require.NoError(t, err)
	active, _ = repo.ListActive(ctx, "u1")
	assert.Empty(t, active)
	active, _ = repo.ListActive(ctx, "u2")
	assert.Len(t, active, 1)

	assert.ErrorIs(t, deactivate.Execute(ctx, DeactivateTokenInput{Token: "unknown"}), schema.ErrNotFound)
	_, err = register.Execute(ctx, RegisterTokenInput{UserID: "u1", Token: " "})
	assert.True(t, schema.IsValidation(err))
}

func TestRegisterToken_ConcurrentOwnersLeaveOneActive(t *testing.T) {
	repo := adapter.NewMemoryDeviceTokenRepository()
	register := NewRegisterTokenUseCase(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := register.Execute(ctx, RegisterTokenInput{UserID: fmt.Sprintf("u%d", i), Token: "tok-shared"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	active := 0
	for _, row := range repo.All() {
		if row.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Len(t, repo.All(), 8)
}

type captureDispatcher struct {
	mu  sync.Mutex
	ins []DispatchInput
}

func (d *captureDispatcher) Dispatch(_ context.Context, in DispatchInput) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ins = append(d.ins, in)
	return nil
}

func TestMessageNotifier(t *testing.T) {
	d := &captureDispatcher{}
	profiles := adapter.NewMemoryProfileRepository(repository.Profile{ID: "alice", FullName: "Alice Moreau"})
	n := NewMessageNotifier(d, profiles, zap.NewNop())

	conv := schema.Conversation{ID: "conv-1", ParticipantIDs: []string{"alice", "bob", "carol"}}
	n.MessageSent(context.Background(), conv, schema.Message{ID: "m1", ConversationID: "conv-1", SenderID: "alice", Content: "Hello"})

	require.Len(t, d.ins, 2)
	for _, in := range d.ins {
		assert.Equal(t, MessageReceivedTrigger, in.TriggerKey)
		assert.Equal(t, "Alice Moreau", in.Payload["sender_name"])
		assert.Equal(t, "Hello", in.Payload["preview"])
		assert.NotEqual(t, "alice", in.Payload["user_id"])
	}
}

func TestPreview(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "é"
	}
	p := preview(long)
	assert.Equal(t, previewRunes, len([]rune(p)))
	assert.Equal(t, "short", preview("short"))
}

func TestDispatch_EmailEscapesValuesOnce(t *testing.T) {
	p := newPipeline(t, schema.NotificationTemplate{
		ID: "e", TriggerKey: "response_received", Channel: schema.ChannelEmail,
		SubjectOrTitle: "{{user_name}} replied", Body: "{{user_name}} received a response to {{gig_title}}",
		IsActive: true, UpdatedAt: t0,
	})
	p.dispatch.Channels = []schema.Channel{schema.ChannelEmail}

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "response_received",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "Fix sink", "user_name": "Tom & Jerry"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)

	assert.Equal(t, "Tom & Jerry replied", ns[0].Title)
	assert.Equal(t, "Tom & Jerry received a response to Fix sink", ns[0].Body)
	assert.Equal(t, []string{"Tom &amp; Jerry received a response to Fix sink"}, p.email.htmls)
}

func TestDispatch_FallbackWithoutChannels(t *testing.T) {
	p := newPipeline(t)
	p.dispatch.Channels = nil

	ns, err := p.dispatch.Execute(context.Background(), DispatchInput{
		TriggerKey: "gig_approved",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "Fix sink"},
	})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, schema.ChannelApp, ns[0].Channel)
	assert.NotEmpty(t, ns[0].Body)
}
