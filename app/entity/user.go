package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool
	LastLogin    sql.NullTime
	Nickname     sql.NullString
	Description  sql.NullString
	Phone        sql.NullString
	Website      sql.NullString
	GithubURL    sql.NullString
	Location     sql.NullString
	BirthDate    sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
