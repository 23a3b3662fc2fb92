// Package store holds the persistence adapters: credentials on MySQL through
// gorm and surveys on MongoDB.
package store

import "errors"

// ErrNotFound is returned when a lookup or a filtered update matches nothing.
var ErrNotFound = errors.New("record not found")
