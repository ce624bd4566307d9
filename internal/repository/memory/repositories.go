package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		if emailTaken(st, user.Email, "") {
			return repository.ErrDuplicate
		}
		user.ID = newID()
		user.CreatedAt, user.UpdatedAt = now, now
		st.Users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		existing, ok := st.Users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if emailTaken(st, user.Email, user.ID) {
			return repository.ErrDuplicate
		}
		user.CreatedAt, user.UpdatedAt = existing.CreatedAt, now
		st.Users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	r.s.read(func(st *Snapshot) { user, ok = st.Users[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var found *domain.User
	r.s.read(func(st *Snapshot) {
		for _, u := range st.Users {
			if strings.EqualFold(u.Email, email) {
				u := u
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *Snapshot, _ time.Time) error {
		if _, ok := st.Users[id]; !ok {
			return repository.ErrNotFound
		}
		for _, req := range st.Requests {
			if req.UserID == id {
				return repository.ErrReferenced
			}
		}
		for _, child := range st.Children {
			if child.ParentID == id {
				return repository.ErrReferenced
			}
		}
		delete(st.Users, id)
		return nil
	})
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) (domain.Page[domain.User], error) {
	var items []domain.User
	r.s.read(func(st *Snapshot) {
		for _, u := range st.Users {
			if filter.IsStaff != nil && u.IsStaff != *filter.IsStaff {
				continue
			}
			if filter.CreatedFrom != nil && u.CreatedAt.Before(*filter.CreatedFrom) {
				continue
			}
			if !matches(filter.Search, u.Email, u.FullName, u.Phone) {
				continue
			}
			items = append(items, u)
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return paginate(items, filter.PageRequest), nil
}

func emailTaken(st *Snapshot, email, exceptID string) bool {
	for id, u := range st.Users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

type zoneRepo struct{ s *Store }

func (r *zoneRepo) Create(ctx context.Context, zone *domain.Zone) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		if zoneNameTaken(st, zone.Name, "") {
			return repository.ErrDuplicate
		}
		zone.ID = newID()
		zone.CreatedAt, zone.UpdatedAt = now, now
		st.Zones[zone.ID] = cloneZone(*zone)
		return nil
	})
}

func (r *zoneRepo) Update(ctx context.Context, zone *domain.Zone) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		existing, ok := st.Zones[zone.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if zoneNameTaken(st, zone.Name, zone.ID) {
			return repository.ErrDuplicate
		}
		zone.CreatedAt, zone.UpdatedAt = existing.CreatedAt, now
		st.Zones[zone.ID] = cloneZone(*zone)
		return nil
	})
}

func (r *zoneRepo) GetByID(_ context.Context, id string) (*domain.Zone, error) {
	var (
		zone domain.Zone
		ok   bool
	)
	r.s.read(func(st *Snapshot) { zone, ok = st.Zones[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	zone = cloneZone(zone)
	return &zone, nil
}

func (r *zoneRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *Snapshot, _ time.Time) error {
		if _, ok := st.Zones[id]; !ok {
			return repository.ErrNotFound
		}
		for _, l := range st.Lockers {
			if l.ZoneID != nil && *l.ZoneID == id {
				return repository.ErrReferenced
			}
		}
		for _, req := range st.Requests {
			if req.PreferredZoneID != nil && *req.PreferredZoneID == id {
				return repository.ErrReferenced
			}
		}
		delete(st.Zones, id)
		return nil
	})
}

func (r *zoneRepo) List(_ context.Context, filter repository.ZoneFilter) (domain.Page[domain.Zone], error) {
	var items []domain.Zone
	r.s.read(func(st *Snapshot) {
		for _, z := range st.Zones {
			if matches(filter.Search, z.Name, z.Description) {
				items = append(items, cloneZone(z))
			}
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return paginate(items, filter.PageRequest), nil
}

func zoneNameTaken(st *Snapshot, name, exceptID string) bool {
	for id, z := range st.Zones {
		if id != exceptID && z.Name == name {
			return true
		}
	}
	return false
}

type lockerRepo struct{ s *Store }

func (r *lockerRepo) Create(ctx context.Context, locker *domain.Locker) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		if err := checkLocker(st, locker, ""); err != nil {
			return err
		}
		locker.ID = newID()
		locker.CreatedAt, locker.UpdatedAt = now, now
		st.Lockers[locker.ID] = cloneLocker(*locker)
		return nil
	})
}

func (r *lockerRepo) Update(ctx context.Context, locker *domain.Locker) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		existing, ok := st.Lockers[locker.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkLocker(st, locker, locker.ID); err != nil {
			return err
		}
		locker.CreatedAt, locker.UpdatedAt = existing.CreatedAt, now
		st.Lockers[locker.ID] = cloneLocker(*locker)
		return nil
	})
}

func (r *lockerRepo) UpdateStatus(ctx context.Context, id string, status domain.LockerStatus) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		locker, ok := st.Lockers[id]
		if !ok {
			return repository.ErrNotFound
		}
		locker.Status = status
		locker.UpdatedAt = now
		st.Lockers[id] = locker
		return nil
	})
}

func (r *lockerRepo) GetByID(_ context.Context, id string) (*domain.Locker, error) {
	var (
		locker domain.Locker
		ok     bool
	)
	r.s.read(func(st *Snapshot) {
		locker, ok = st.Lockers[id]
		locker = cloneLocker(locker)
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &locker, nil
}

func (r *lockerRepo) GetByNumber(_ context.Context, number int) (*domain.Locker, error) {
	var found *domain.Locker
	r.s.read(func(st *Snapshot) {
		for _, l := range st.Lockers {
			if l.Number == number {
				l = cloneLocker(l)
				found = &l
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *lockerRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *Snapshot, _ time.Time) error {
		if _, ok := st.Lockers[id]; !ok {
			return repository.ErrNotFound
		}
		for _, a := range st.Assignments {
			if a.LockerID == id {
				return repository.ErrReferenced
			}
		}
		delete(st.Lockers, id)
		return nil
	})
}

func (r *lockerRepo) List(_ context.Context, filter repository.LockerFilter) (domain.Page[domain.Locker], error) {
	term := strings.TrimSpace(filter.Search)
	number, numErr := strconv.Atoi(term)
	var items []domain.Locker
	r.s.read(func(st *Snapshot) {
		for _, l := range st.Lockers {
			if filter.Status != nil && l.Status != *filter.Status {
				continue
			}
			if filter.ZoneID != nil && (l.ZoneID == nil || *l.ZoneID != *filter.ZoneID) {
				continue
			}
			if term != "" {
				if numErr == nil && l.Number != number {
					continue
				}
				if numErr != nil && !matches(term, l.Note) {
					continue
				}
			}
			items = append(items, cloneLocker(l))
		}
	})
	sortLockers(items)
	return paginate(items, filter.PageRequest), nil
}

func (r *lockerRepo) FindFirstFree(_ context.Context, zoneID *string) (*domain.Locker, error) {
	var found *domain.Locker
	r.s.read(func(st *Snapshot) {
		for _, l := range st.Lockers {
			if l.Status != domain.LockerStatusFree {
				continue
			}
			if zoneID != nil && (l.ZoneID == nil || *l.ZoneID != *zoneID) {
				continue
			}
			if found == nil || l.Number < found.Number {
				l = cloneLocker(l)
				found = &l
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func checkLocker(st *Snapshot, locker *domain.Locker, exceptID string) error {
	for id, l := range st.Lockers {
		if id != exceptID && l.Number == locker.Number {
			return repository.ErrDuplicate
		}
	}
	if locker.ZoneID != nil {
		if _, ok := st.Zones[*locker.ZoneID]; !ok {
			return repository.ErrReferenced
		}
	}
	return nil
}

func sortLockers(items []domain.Locker) {
	sort.Slice(items, func(i, j int) bool { return items[i].Number < items[j].Number })
}

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(ctx context.Context, request *domain.Request) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		if err := checkRequest(st, request); err != nil {
			return err
		}
		request.ID = newID()
		request.CreatedAt, request.UpdatedAt = now, now
		if request.SubmittedAt.IsZero() {
			request.SubmittedAt = now
		}
		st.Requests[request.ID] = cloneRequest(*request)
		return nil
	})
}

func (r *requestRepo) Update(ctx context.Context, request *domain.Request) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		existing, ok := st.Requests[request.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkRequest(st, request); err != nil {
			return err
		}
		request.CreatedAt, request.UpdatedAt = existing.CreatedAt, now
		st.Requests[request.ID] = cloneRequest(*request)
		return nil
	})
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.Request, error) {
	var (
		request domain.Request
		ok      bool
	)
	r.s.read(func(st *Snapshot) {
		request, ok = st.Requests[id]
		request = cloneRequest(request)
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &request, nil
}

// Delete removes the request and its assignments, like the ON DELETE CASCADE foreign key.
func (r *requestRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *Snapshot, _ time.Time) error {
		if _, ok := st.Requests[id]; !ok {
			return repository.ErrNotFound
		}
		for aid, a := range st.Assignments {
			if a.RequestID == id {
				delete(st.Assignments, aid)
			}
		}
		delete(st.Requests, id)
		return nil
	})
}

func (r *requestRepo) List(_ context.Context, filter repository.RequestFilter) (domain.Page[domain.Request], error) {
	var items []domain.Request
	r.s.read(func(st *Snapshot) {
		for _, req := range st.Requests {
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			if filter.UserID != nil && req.UserID != *filter.UserID {
				continue
			}
			if filter.PreferredZoneID != nil && (req.PreferredZoneID == nil || *req.PreferredZoneID != *filter.PreferredZoneID) {
				continue
			}
			if !matches(filter.Search, req.StudentName, req.RequesterName, req.RequesterAddress, req.RequesterPhone) {
				continue
			}
			items = append(items, cloneRequest(req))
		}
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].SubmittedAt.After(items[j].SubmittedAt)
		}
		return items[i].ID < items[j].ID
	})
	return paginate(items, filter.PageRequest), nil
}

func checkRequest(st *Snapshot, request *domain.Request) error {
	if _, ok := st.Users[request.UserID]; !ok {
		return repository.ErrReferenced
	}
	if request.PreferredZoneID != nil {
		if _, ok := st.Zones[*request.PreferredZoneID]; !ok {
			return repository.ErrReferenced
		}
	}
	return nil
}

type assignmentRepo struct{ s *Store }

func (r *assignmentRepo) Create(ctx context.Context, assignment *domain.Assignment) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		if err := checkAssignment(st, assignment); err != nil {
			return err
		}
		assignment.ID = newID()
		assignment.CreatedAt, assignment.UpdatedAt = now, now
		st.Assignments[assignment.ID] = *assignment
		return nil
	})
}

func (r *assignmentRepo) Update(ctx context.Context, assignment *domain.Assignment) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		existing, ok := st.Assignments[assignment.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkAssignment(st, assignment); err != nil {
			return err
		}
		assignment.CreatedAt, assignment.UpdatedAt = existing.CreatedAt, now
		st.Assignments[assignment.ID] = *assignment
		return nil
	})
}

func (r *assignmentRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *Snapshot, _ time.Time) error {
		if _, ok := st.Assignments[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.Assignments, id)
		return nil
	})
}

func (r *assignmentRepo) GetByRequest(_ context.Context, requestID string) (*domain.Assignment, error) {
	return r.latest(func(a domain.Assignment) bool { return a.RequestID == requestID })
}

func (r *assignmentRepo) GetByLocker(_ context.Context, lockerID string) (*domain.Assignment, error) {
	return r.latest(func(a domain.Assignment) bool { return a.LockerID == lockerID })
}

func (r *assignmentRepo) latest(match func(domain.Assignment) bool) (*domain.Assignment, error) {
	var found *domain.Assignment
	r.s.read(func(st *Snapshot) {
		for _, a := range st.Assignments {
			if !match(a) {
				continue
			}
			if found == nil || a.AssignedAt.After(found.AssignedAt) {
				a := a
				found = &a
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *assignmentRepo) ListByUser(_ context.Context, userID string) ([]domain.Assignment, error) {
	var items []domain.Assignment
	r.s.read(func(st *Snapshot) {
		for _, a := range st.Assignments {
			if req, ok := st.Requests[a.RequestID]; ok && req.UserID == userID {
				items = append(items, a)
			}
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].AssignedAt.After(items[j].AssignedAt) })
	return items, nil
}

func (r *assignmentRepo) ListAll(_ context.Context) ([]domain.Assignment, error) {
	var items []domain.Assignment
	r.s.read(func(st *Snapshot) {
		for _, a := range st.Assignments {
			items = append(items, a)
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].AssignedAt.Before(items[j].AssignedAt) })
	return items, nil
}

func checkAssignment(st *Snapshot, assignment *domain.Assignment) error {
	if _, ok := st.Requests[assignment.RequestID]; !ok {
		return repository.ErrReferenced
	}
	if _, ok := st.Lockers[assignment.LockerID]; !ok {
		return repository.ErrReferenced
	}
	return nil
}

type childRepo struct{ s *Store }

func (r *childRepo) Create(ctx context.Context, child *domain.Child) error {
	return r.s.write(ctx, func(st *Snapshot, now time.Time) error {
		if _, ok := st.Users[child.ParentID]; !ok {
			return repository.ErrReferenced
		}
		child.ID = newID()
		child.CreatedAt, child.UpdatedAt = now, now
		st.Children[child.ID] = *child
		return nil
	})
}

func (r *childRepo) ListByParent(_ context.Context, parentID string) ([]domain.Child, error) {
	var items []domain.Child
	r.s.read(func(st *Snapshot) {
		for _, c := range st.Children {
			if c.ParentID == parentID {
				items = append(items, c)
			}
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].FullName < items[j].FullName })
	return items, nil
}

// matches reports a case-insensitive substring hit in any field; an empty term matches everything.
func matches(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
