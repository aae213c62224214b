// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered user. History lists the account's result ids in
// the order they were appended.
type Account struct {
	ID           string
	Username     string
	Salt         []byte
	PasswordHash []byte
	History      []string
	CreatedAt    time.Time
}
