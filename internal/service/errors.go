package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors the handlers translate into HTTP/WS error codes.
var (
	// ErrNotFound covers unknown examinees, exams, and attempts.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when a valid token is scoped to a
	// different exam than the one being accessed.
	ErrForbidden = errors.New("access to this resource is forbidden")

	// ErrExamWindowClosed is returned when joining outside the exam's
	// scheduled start/end window.
	ErrExamWindowClosed = errors.New("exam is outside its scheduled window")

	// ErrAlreadyCompleted is returned when joining an exam whose latest
	// attempt is finished and no retake was granted.
	ErrAlreadyCompleted = errors.New("exam already completed")

	// ErrAttemptFinished is returned by operations that require a
	// non-terminal attempt (questions, answers, begin).
	ErrAttemptFinished = errors.New("attempt is already finished")
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
