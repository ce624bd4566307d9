package service

import (
	"errors"

	"github.com/spindit/locker-service/internal/locking"
	"github.com/spindit/locker-service/internal/repository"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// readError maps a failed lookup of resource id.
func readError(resource, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewRemoteReadError(err)
}

// listError maps a failed listing or count.
func listError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewRemoteReadError(err)
}

// writeError maps a failed create, update or delete of resource.
func writeError(resource string, err error) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrReferenced):
		return apperrors.NewConflict(resource+" references a missing record or is still referenced", nil)
	case errors.Is(err, locking.ErrLocked):
		return apperrors.NewConflict(resource+" is being changed by another request", nil)
	default:
		return apperrors.NewRemoteWriteError(err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
