package dto

import (
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const birthDateLayout = "2006-01-02"

// PublicUser is the client-safe projection of a user. It never carries the
// password hash.
type PublicUser struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	IsVerified  bool       `json:"is_verified"`
	LastLogin   *time.Time `json:"last_login"`
	Nickname    *string    `json:"nickname"`
	Description *string    `json:"description"`
	Phone       *string    `json:"phone"`
	Website     *string    `json:"website"`
	GithubURL   *string    `json:"github_url"`
	Location    *string    `json:"location"`
	BirthDate   *string    `json:"birth_date"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewPublicUser(user *entity.User) *PublicUser {
	public := &PublicUser{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		IsVerified:  user.IsVerified,
		Nickname:    nullString(user.Nickname),
		Description: nullString(user.Description),
		Phone:       nullString(user.Phone),
		Website:     nullString(user.Website),
		GithubURL:   nullString(user.GithubURL),
		Location:    nullString(user.Location),
		CreatedAt:   user.CreatedAt,
	}
	if user.LastLogin.Valid {
		lastLogin := user.LastLogin.Time
		public.LastLogin = &lastLogin
	}
	if user.BirthDate.Valid {
		birthDate := user.BirthDate.Time.Format(birthDateLayout)
		public.BirthDate = &birthDate
	}
	return public
}

type SessionResult struct {
	User         *PublicUser `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// OneTimeTokenResult carries a freshly generated verification or reset token.
// Token is the raw value handed to the delivery collaborator; it is only
// serialized when the service is configured to expose tokens.
type OneTimeTokenResult struct {
	Message   string    `json:"message"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

func nullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
