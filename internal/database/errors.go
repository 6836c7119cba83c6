package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrReportNotFound is returned when no report matches the lookup.
	ErrReportNotFound = errors.New("search report not found")

	// ErrNilReport is returned by SaveReport for a nil report.
	ErrNilReport = errors.New("search report is nil")
)
