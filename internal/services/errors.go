package services

import (
	"errors"

	"taskify/backend/internal/repositories"
)

var (
	ErrUserAlreadyExists       = errors.New("a user with this email already exists")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrWeakPassword            = errors.New("password must be at least 8 characters and include upper and lower case letters, a digit and a special character")
	ErrInvalidTaskStatus       = errors.New("invalid task status")
	ErrInvalidStatusTransition = errors.New("task status cannot change once completed or cancelled")
	ErrIncompleteOAuthProfile  = errors.New("oauth profile is missing an id or email")
	ErrInvalidGender           = errors.New("gender must be MALE, FEMALE or OTHERS")

	ErrUserNotFound = repositories.ErrUserNotFound
	ErrTaskNotFound = repositories.ErrTaskNotFound
)
