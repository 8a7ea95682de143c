// Package service implements the listing, favorite and moderation workflows.
package service

import (
	"errors"
	"maps"

	"inmomarket/internal/models"
	"inmomarket/internal/repository"
)

// storageError passes application errors through and classifies everything else as a storage failure.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStorageError(err)
}

// notFoundOr maps a missing row to NotFound for resource and anything else through storageError.
func notFoundOr(err error, resource string, id any) error {
	if repository.IsNotFound(err) {
		return models.NewNotFoundError(resource, id)
	}
	return storageError(err)
}

// fieldErrors accumulates per-field validation messages across several checks.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

// merge folds the fields of a validation error into f. Other errors are returned unchanged.
func (f fieldErrors) merge(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation {
		return err
	}
	if len(appErr.Fields) == 0 {
		f.add("_", appErr.Message)
		return nil
	}
	for k, v := range appErr.Fields {
		f.add(k, v)
	}
	return nil
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return models.NewFieldValidationError(maps.Clone(f))
}
