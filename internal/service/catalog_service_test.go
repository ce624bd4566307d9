package service

import (
	"context"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

func TestZoneLifecycleAndDeleteGuards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, withoutAutoReserve)

	zone, err := env.zones.Create(ctx, ZoneInput{Name: " Zone A ", Description: "Ground floor left wing"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if zone.Name != "Zone A" {
		t.Fatalf("name should be trimmed, got %q", zone.Name)
	}
	_, err = env.zones.Create(ctx, ZoneInput{Name: "Zone A"})
	expectCode(t, err, apperrors.CodeConflict)
	_, err = env.zones.Create(ctx, ZoneInput{Name: "A"})
	expectCode(t, err, apperrors.CodeValidation)

	l := env.locker(t, 1, zone, domain.LockerStatusFree)
	expectCode(t, env.zones.Delete(ctx, zone.ID), apperrors.CodeConflict)
	if err := env.store.Lockers.Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete locker: %v", err)
	}

	owner := env.user(t, "a@example.test")
	req, err := env.requests.Create(ctx, owner.ID, requestInput("", &zone.ID))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	expectCode(t, env.zones.Delete(ctx, zone.ID), apperrors.CodeConflict)
	if err := env.requests.Delete(ctx, req.ID); err != nil {
		t.Fatalf("delete request: %v", err)
	}

	if err := env.zones.Delete(ctx, zone.ID); err != nil {
		t.Fatalf("delete zone: %v", err)
	}
	_, err = env.zones.Get(ctx, zone.ID)
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestZoneClassTags(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, withoutAutoReserve)

	zone, err := env.zones.Create(ctx, ZoneInput{Name: "Zone B", ClassTags: []string{" 7th", "8th", "7TH", ""}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !reflect.DeepEqual(zone.ClassTags, []string{"7th", "8th"}) {
		t.Fatalf("tags should be trimmed and de-duplicated, got %v", zone.ClassTags)
	}

	stored, err := env.zones.Get(ctx, zone.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	stored.ClassTags[0] = "mutated"
	again, _ := env.zones.Get(ctx, zone.ID)
	if again.ClassTags[0] != "7th" {
		t.Fatalf("stored tags changed through a read copy: %v", again.ClassTags)
	}

	updated, err := env.zones.Update(ctx, zone.ID, ZoneInput{Name: "Zone B", ClassTags: []string{"9th"}})
	if err != nil || !reflect.DeepEqual(updated.ClassTags, []string{"9th"}) {
		t.Fatalf("update: %+v %v", updated, err)
	}

	_, err = env.zones.Create(ctx, ZoneInput{Name: "Zone C", ClassTags: []string{strings.Repeat("x", 40)}})
	expectCode(t, err, apperrors.CodeValidation)
}

func TestZoneMapUpload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	zone := env.zone(t, "Zone A")

	_, err := env.zones.UploadMap(ctx, zone.ID, strings.NewReader("plain"), "text/plain")
	expectCode(t, err, apperrors.CodeValidation)

	first, err := env.zones.UploadMap(ctx, zone.ID, strings.NewReader("png-1"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(first.MapKey, "zones/"+zone.ID+"/map-") {
		t.Fatalf("unexpected key %q", first.MapKey)
	}
	firstKey := first.MapKey

	second, err := env.zones.UploadMap(ctx, zone.ID, strings.NewReader("png-2"), "image/png")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if second.MapKey == firstKey {
		t.Fatalf("replacement should use a new key")
	}
	if _, _, err := env.zones.blobs.Get(ctx, firstKey); err == nil {
		t.Fatalf("old map should be deleted")
	}

	url, err := env.zones.MapURL(ctx, zone.ID)
	if err != nil || url != "" {
		t.Fatalf("memory blobs cannot presign: %q %v", url, err)
	}
	info, rc, err := env.zones.OpenMap(ctx, zone.ID)
	if err != nil {
		t.Fatalf("open map: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "png-2" || info.ContentType != "image/png" {
		t.Fatalf("unexpected map %q %+v", body, info)
	}

	other := env.zone(t, "Zone B")
	_, _, err = env.zones.OpenMap(ctx, other.ID)
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestZoneMapUploadSizeLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.zones.maxUpload = 4
	zone := env.zone(t, "Zone A")

	_, err := env.zones.UploadMap(ctx, zone.ID, strings.NewReader("12345"), "image/png")
	expectCode(t, err, apperrors.CodeValidation)
	if _, err := env.zones.UploadMap(ctx, zone.ID, strings.NewReader("1234"), "image/png"); err != nil {
		t.Fatalf("upload at limit: %v", err)
	}
}

func TestLockerServiceRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	zone := env.zone(t, "Zone A")

	locker, err := env.lockerSvc.Create(ctx, LockerInput{Number: 12, ZoneID: &zone.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if locker.Status != domain.LockerStatusFree {
		t.Fatalf("default status should be free, got %s", locker.Status)
	}

	cases := []struct {
		name  string
		input LockerInput
		code  string
	}{
		{"duplicate number", LockerInput{Number: 12}, apperrors.CodeConflict},
		{"non-positive number", LockerInput{Number: 0}, apperrors.CodeValidation},
		{"unknown status", LockerInput{Number: 13, Status: "broken"}, apperrors.CodeValidation},
		{"unknown zone", LockerInput{Number: 13, ZoneID: strPtr("missing")}, apperrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.lockerSvc.Create(ctx, tc.input)
			expectCode(t, err, tc.code)
		})
	}

	updated, err := env.lockerSvc.Update(ctx, locker.ID, LockerInput{Number: 12, Status: domain.LockerStatusMaintenance, Note: "hinge"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.LockerStatusMaintenance || updated.ZoneID != nil || updated.Note != "hinge" {
		t.Fatalf("unexpected update %+v", updated)
	}

	page, err := env.lockerSvc.List(ctx, repository.LockerFilter{Search: "hinge"})
	if err != nil || page.TotalItems != 1 {
		t.Fatalf("search by note: %+v %v", page, err)
	}

	if err := env.lockerSvc.Delete(ctx, locker.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	held := env.locker(t, 20, nil, domain.LockerStatusFree)
	owner := env.user(t, "a@example.test")
	req := env.request(t, owner)
	if _, err := env.assignments.Reconcile(ctx, req.ID, &held.ID); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	expectCode(t, env.lockerSvc.Delete(ctx, held.ID), apperrors.CodeConflict)
	if _, err := env.assignments.Reconcile(ctx, req.ID, nil); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := env.lockerSvc.Delete(ctx, held.ID); err != nil {
		t.Fatalf("delete released locker: %v", err)
	}
}

func TestUserServiceDeleteGuards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, withoutAutoReserve)

	staff, err := env.users.Create(ctx, UserCreateInput{Email: "Staff@Example.test", Password: "Spindit#10", IsStaff: true})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if staff.Email != "staff@example.test" || !staff.IsStaff {
		t.Fatalf("unexpected staff %+v", staff)
	}
	_, err = env.users.Create(ctx, UserCreateInput{Email: "staff@example.test", Password: "Spindit#10"})
	expectCode(t, err, apperrors.CodeConflict)

	guardian, err := env.users.Create(ctx, UserCreateInput{Email: "parent@example.test", Password: "Spindit#10"})
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	staffOnly, err := env.users.List(ctx, UserListInput{StaffOnly: true})
	if err != nil || staffOnly.TotalItems != 1 || staffOnly.Items[0].ID != staff.ID {
		t.Fatalf("staff filter: %+v %v", staffOnly, err)
	}

	promote := true
	updated, err := env.users.Update(ctx, guardian.ID, UserUpdateInput{IsStaff: &promote, FullName: strPtr("Nora Fischer")})
	if err != nil || !updated.IsStaff || updated.FullName != "Nora Fischer" {
		t.Fatalf("update: %+v %v", updated, err)
	}

	children := NewChildService(env.store.Children, env.validator)
	if _, err := children.Create(ctx, guardian.ID, ChildInput{FullName: "Finn Fischer", Class: "9A"}); err != nil {
		t.Fatalf("create child: %v", err)
	}
	expectCode(t, env.users.Delete(ctx, guardian.ID), apperrors.CodeConflict)

	req := env.request(t, staff)
	expectCode(t, env.users.Delete(ctx, staff.ID), apperrors.CodeConflict)
	if err := env.requests.Delete(ctx, req.ID); err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if err := env.users.Delete(ctx, staff.ID); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	expectCode(t, env.users.Delete(ctx, staff.ID), apperrors.CodeNotFound)
}

func TestChildServiceScopesToParent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.user(t, "a@example.test")
	bob := env.user(t, "b@example.test")
	children := NewChildService(env.store.Children, env.validator)

	for _, name := range []string{"Mia Müller", "Emma Johnson"} {
		if _, err := children.Create(ctx, alice.ID, ChildInput{FullName: name, Class: "6A"}); err != nil {
			t.Fatalf("create child: %v", err)
		}
	}
	_, err := children.Create(ctx, bob.ID, ChildInput{FullName: " "})
	expectCode(t, err, apperrors.CodeValidation)

	mine, err := children.List(ctx, alice.ID)
	if err != nil || len(mine) != 2 || mine[0].FullName != "Emma Johnson" {
		t.Fatalf("unexpected children %+v %v", mine, err)
	}
	theirs, err := children.List(ctx, bob.ID)
	if err != nil || len(theirs) != 0 {
		t.Fatalf("bob should have none: %+v %v", theirs, err)
	}
}

func TestDashboardMetrics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	zone := env.zone(t, "Zone A")
	env.locker(t, 1, zone, domain.LockerStatusFree)
	env.locker(t, 2, zone, domain.LockerStatusFree)
	env.locker(t, 3, zone, domain.LockerStatusOccupied)
	env.mem.SetClock(func() time.Time { return time.Now().UTC().AddDate(0, 0, -10) })
	env.user(t, "old@example.test")
	env.mem.SetClock(func() time.Time { return time.Now().UTC() })
	owner := env.user(t, "a@example.test")
	if _, err := env.requests.Create(ctx, owner.ID, requestInput("", nil)); err != nil {
		t.Fatalf("create reserved request: %v", err)
	}
	env.request(t, owner)

	dashboard := NewDashboardService(env.store, nil, nil)
	m, err := dashboard.Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	want := DashboardMetrics{
		TotalUsers:      2,
		NewUsersWeek:    1,
		TotalRequests:   2,
		PendingRequests: 1,
		TotalLockers:    3,
		FreeLockers:     1,
		TotalZones:      1,
	}
	if m != want {
		t.Fatalf("metrics = %+v, want %+v", m, want)
	}

	recent, err := dashboard.RecentRequests(ctx, 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("recent: %+v %v", recent, err)
	}
}

func TestDevToolsScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	l102 := env.locker(t, 102, nil, domain.LockerStatusFree)
	dev := NewDevToolsService(env.auth, env.requests, nil)

	templates := dev.Templates()
	if len(templates) != 10 {
		t.Fatalf("expected 10 templates, got %d", len(templates))
	}
	if templates[1].Profile.Language != domain.LanguageEnglish || templates[0].Profile.Language != domain.LanguageGerman {
		t.Fatalf("unexpected template languages")
	}
	if templates[9].Email != "dev-user10@example.test" || templates[9].Password != "Spindit#100" {
		t.Fatalf("unexpected template %+v", templates[9])
	}

	result, err := dev.RunScenario(ctx, 1, ScenarioInput{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, step := range result.Steps {
		if step.Status != StepSuccess {
			t.Fatalf("step %s: %s %s", step.Key, step.Status, step.Message)
		}
	}
	a, err := env.assignments.GetForRequest(ctx, result.RequestID)
	if err != nil || a.LockerID != l102.ID {
		t.Fatalf("scenario request should reserve locker 102: %+v %v", a, err)
	}

	again, err := dev.RunScenario(ctx, 1, ScenarioInput{})
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.Steps[0].Status != StepError || again.Steps[2].Status != StepIdle || again.Steps[3].Status != StepIdle {
		t.Fatalf("rerun should stop at signup: %+v", again.Steps)
	}

	login, err := dev.RunScenario(ctx, 1, ScenarioInput{Steps: []StepKey{StepLogin, StepProfile}})
	if err != nil {
		t.Fatalf("login run: %v", err)
	}
	if login.Steps[0].Status != StepIdle || login.Steps[1].Status != StepSuccess || login.Steps[2].Status != StepSuccess {
		t.Fatalf("unexpected login run %+v", login.Steps)
	}

	_, err = dev.RunScenario(ctx, 11, ScenarioInput{})
	expectCode(t, err, apperrors.CodeNotFound)
	_, err = dev.RunScenario(ctx, 1, ScenarioInput{Steps: []StepKey{"teleport"}})
	expectCode(t, err, apperrors.CodeValidation)
}
