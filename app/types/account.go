package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

// UpdateProfileRequest lists every field a user may change through the profile
// endpoint. Anything else in the body, including is_verified, is dropped at
// binding time. A nil field is left untouched; an empty string clears it.
type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Nickname    *string `json:"nickname" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	Website     *string `json:"website" validate:"omitempty,url,max=512"`
	GithubURL   *string `json:"github_url" validate:"omitempty,url,max=512"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

func NewUpdateProfileRequestFromContext(ctx echo.Context) (*UpdateProfileRequest, error) {
	var body UpdateProfileRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("Name cannot be empty")
	}
	return validateStruct(r)
}

// Empty reports whether no whitelisted field was supplied.
func (r *UpdateProfileRequest) Empty() bool {
	return r.Name == nil &&
		r.Nickname == nil &&
		r.Description == nil &&
		r.Phone == nil &&
		r.Website == nil &&
		r.GithubURL == nil &&
		r.Location == nil &&
		r.BirthDate == nil
}

// UpdateCredentialsRequest changes the email and/or password. Checks happen in
// the account service because their order decides the status code.
type UpdateCredentialsRequest struct {
	CurrentPassword string  `json:"currentPassword"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
}

func NewUpdateCredentialsRequestFromContext(ctx echo.Context) (*UpdateCredentialsRequest, error) {
	var body UpdateCredentialsRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}
