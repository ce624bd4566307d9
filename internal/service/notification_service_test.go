package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/events"
)

func TestNotificationsReachWebhookInGuardianLanguage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var mu sync.Mutex
	var notices []Notice
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n Notice
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	NewNotificationService(NotificationDependencies{
		Store:      env.store,
		Dispatcher: env.dispatcher,
		Config:     config.NotificationConfig{WebhookURL: hook.URL},
	}).RegisterHandlers()

	owner := env.user(t, "en@example.test")
	owner.Language = domain.LanguageEnglish
	if err := env.store.Users.Update(ctx, owner); err != nil {
		t.Fatalf("update user: %v", err)
	}
	env.locker(t, 1, nil, domain.LockerStatusFree)

	if _, err := env.requests.Create(ctx, owner.ID, requestInput("", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	byType := map[events.EventType]Notice{}
	for _, n := range notices {
		byType[n.EventType] = n
		if n.To != owner.Email || n.Language != domain.LanguageEnglish {
			t.Fatalf("unexpected recipient %+v", n)
		}
	}
	if got := byType[events.EventRequestCreated].Subject; got != "Locker request received" {
		t.Fatalf("created subject %q", got)
	}
	if body := byType[events.EventAssignmentChanged].Body; !strings.HasPrefix(body, "Locker 1 is assigned") {
		t.Fatalf("assignment body %q", body)
	}
	if body := byType[events.EventRequestStatusChanged].Body; !strings.HasSuffix(body, string(domain.RequestStatusReserved)+".") {
		t.Fatalf("status body %q", body)
	}
}

func TestNotificationWebhookHonorsExpiredContext(t *testing.T) {
	env := newTestEnv(t)
	svc := NewNotificationService(NotificationDependencies{
		Store:  env.store,
		Config: config.NotificationConfig{WebhookURL: "http://127.0.0.1:1/hook"},
	})
	owner := env.user(t, "de@example.test")
	req := env.request(t, owner)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := svc.handle(ctx, events.New(events.EventRequestCreated, req.ID, nil, events.RequestCreatedPayload{UserID: owner.ID}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNotificationWebhookFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer hook.Close()

	svc := NewNotificationService(NotificationDependencies{
		Store:  env.store,
		Config: config.NotificationConfig{WebhookURL: hook.URL},
	})
	owner := env.user(t, "de@example.test")
	req := env.request(t, owner)

	err := svc.handle(context.Background(), events.New(events.EventRequestCreated, req.ID, nil, events.RequestCreatedPayload{UserID: owner.ID}))
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected webhook status error, got %v", err)
	}

	if err := svc.handle(context.Background(), events.New(events.EventRequestCreated, "missing", nil, events.RequestCreatedPayload{})); err != nil {
		t.Fatalf("deleted request should be skipped, got %v", err)
	}
}
