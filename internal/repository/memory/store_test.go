package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
)

func newRepos(t *testing.T) (*Store, *repository.Store) {
	t.Helper()
	s := New()
	return s, s.Repositories()
}

func mustUser(t *testing.T, repos *repository.Store, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, FullName: "Test " + email, Language: domain.DefaultLanguage}
	if err := repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUserEmailIsUniqueIgnoringCase(t *testing.T) {
	_, repos := newRepos(t)
	mustUser(t, repos, "Parent@Example.test")
	err := repos.Users.Create(context.Background(), &domain.User{Email: "parent@example.test"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := repos.Users.GetByEmail(context.Background(), "PARENT@example.test")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Email != "Parent@Example.test" {
		t.Fatalf("unexpected user %q", got.Email)
	}
}

func TestLockerNumberUniqueAndZoneReferenced(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	if err := repos.Lockers.Create(ctx, &domain.Locker{Number: 7, Status: domain.LockerStatusFree}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repos.Lockers.Create(ctx, &domain.Locker{Number: 7, Status: domain.LockerStatusFree}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	missing := "nope"
	if err := repos.Lockers.Create(ctx, &domain.Locker{Number: 8, ZoneID: &missing}); !errors.Is(err, repository.ErrReferenced) {
		t.Fatalf("expected referenced, got %v", err)
	}
}

func TestLockerListSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	for i := 1; i <= 25; i++ {
		l := &domain.Locker{Number: i, Status: domain.LockerStatusFree}
		if i == 12 {
			l.Note = "Broken Hinge"
		}
		if err := repos.Lockers.Create(ctx, l); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	cases := []struct {
		name      string
		filter    repository.LockerFilter
		wantTotal int
		wantFirst int
		wantItems int
	}{
		{"default page", repository.LockerFilter{}, 25, 1, 20},
		{"second page", repository.LockerFilter{PageRequest: domain.PageRequest{Page: 2, PerPage: 20}}, 25, 21, 5},
		{"numeric search", repository.LockerFilter{Search: "12"}, 1, 12, 1},
		{"note search", repository.LockerFilter{Search: "hinge"}, 1, 12, 1},
		{"past the end", repository.LockerFilter{PageRequest: domain.PageRequest{Page: 9}}, 25, 0, 0},
		{"overflowing page", repository.LockerFilter{PageRequest: domain.PageRequest{Page: 922337203685477581, PerPage: 20}}, 25, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := repos.Lockers.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.TotalItems != tc.wantTotal || len(page.Items) != tc.wantItems {
				t.Fatalf("total=%d items=%d", page.TotalItems, len(page.Items))
			}
			if tc.wantItems > 0 && page.Items[0].Number != tc.wantFirst {
				t.Fatalf("first number %d, want %d", page.Items[0].Number, tc.wantFirst)
			}
		})
	}
}

func TestFindFirstFreeRespectsZoneAndStatus(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	zone := &domain.Zone{Name: "Zone A"}
	if err := repos.Zones.Create(ctx, zone); err != nil {
		t.Fatalf("zone: %v", err)
	}
	lockers := []domain.Locker{
		{Number: 3, Status: domain.LockerStatusFree, ZoneID: &zone.ID},
		{Number: 1, Status: domain.LockerStatusFree},
		{Number: 2, Status: domain.LockerStatusReserved, ZoneID: &zone.ID},
	}
	for i := range lockers {
		if err := repos.Lockers.Create(ctx, &lockers[i]); err != nil {
			t.Fatalf("locker: %v", err)
		}
	}
	first, err := repos.Lockers.FindFirstFree(ctx, nil)
	if err != nil || first.Number != 1 {
		t.Fatalf("first free: %+v %v", first, err)
	}
	inZone, err := repos.Lockers.FindFirstFree(ctx, &zone.ID)
	if err != nil || inZone.Number != 3 {
		t.Fatalf("first free in zone: %+v %v", inZone, err)
	}
	other := "other"
	if _, err := repos.Lockers.FindFirstFree(ctx, &other); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	locker := &domain.Locker{Number: 1, Status: domain.LockerStatusFree}
	if err := repos.Lockers.Create(ctx, locker); err != nil {
		t.Fatalf("create: %v", err)
	}
	boom := errors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Lockers.UpdateStatus(ctx, locker.ID, domain.LockerStatusReserved); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := repos.Lockers.GetByID(ctx, locker.ID)
	if got.Status != domain.LockerStatusFree {
		t.Fatalf("status %s survived rollback", got.Status)
	}
}

func TestDeleteGuardsAndCascade(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	user := mustUser(t, repos, "a@example.test")
	locker := &domain.Locker{Number: 1, Status: domain.LockerStatusReserved}
	if err := repos.Lockers.Create(ctx, locker); err != nil {
		t.Fatalf("locker: %v", err)
	}
	req := &domain.Request{UserID: user.ID, StudentName: "Kid", Status: domain.RequestStatusReserved}
	if err := repos.Requests.Create(ctx, req); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := repos.Assignments.Create(ctx, &domain.Assignment{RequestID: req.ID, LockerID: locker.ID}); err != nil {
		t.Fatalf("assignment: %v", err)
	}

	if err := repos.Users.Delete(ctx, user.ID); !errors.Is(err, repository.ErrReferenced) {
		t.Fatalf("user delete: %v", err)
	}
	if err := repos.Lockers.Delete(ctx, locker.ID); !errors.Is(err, repository.ErrReferenced) {
		t.Fatalf("locker delete: %v", err)
	}
	if err := repos.Requests.Delete(ctx, req.ID); err != nil {
		t.Fatalf("request delete: %v", err)
	}
	if _, err := repos.Assignments.GetByRequest(ctx, req.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("assignment should cascade, got %v", err)
	}
}

type recordingPersister struct {
	loaded Snapshot
	saves  int
	fail   error
	last   Snapshot
}

func (p *recordingPersister) Load(context.Context) (Snapshot, error) { return p.loaded, nil }

func (p *recordingPersister) Save(_ context.Context, s Snapshot) error {
	if p.fail != nil {
		return p.fail
	}
	p.saves++
	p.last = s
	return nil
}

func TestPersisterSavesAfterCommitAndRestoresOnFailure(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s, err := NewPersistent(ctx, p)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	repos := s.Repositories()
	mustUser(t, repos, "a@example.test")
	if p.saves != 1 || len(p.last.Users) != 1 {
		t.Fatalf("saves=%d users=%d", p.saves, len(p.last.Users))
	}

	p.fail = errors.New("disk full")
	if err := repos.Users.Create(ctx, &domain.User{Email: "b@example.test"}); err == nil {
		t.Fatal("expected persist error")
	}
	page, _ := repos.Users.List(ctx, repository.UserFilter{})
	if page.TotalItems != 1 {
		t.Fatalf("failed persist should roll back, have %d users", page.TotalItems)
	}
}
