package domain

import "time"

type Identity struct {
	IdentityID    string           `json:"id" dynamodbav:"identity_id"`
	Name          string           `json:"name" dynamodbav:"name"`
	Email         string           `json:"email" dynamodbav:"email"`
	Phone         string           `json:"phone" dynamodbav:"phone"`
	PasswordHash  string           `json:"-" dynamodbav:"password_hash"` // empty until a password is set
	Role          string           `json:"role" dynamodbav:"role"`
	AvatarURL     string           `json:"avatar_url" dynamodbav:"avatar_url"`
	EmailVerified bool             `json:"email_verified" dynamodbav:"email_verified"`
	PhoneVerified bool             `json:"phone_verified" dynamodbav:"phone_verified"`
	EmailCode     VerificationCode `json:"-" dynamodbav:"email_verification_code"`
	PhoneCode     VerificationCode `json:"-" dynamodbav:"phone_verification_code"`
	ResetCode     VerificationCode `json:"-" dynamodbav:"reset_password_code"`
	LastLogin     time.Time        `json:"last_login" dynamodbav:"last_login"`
	CreatedAt     time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time        `json:"updated" dynamodbav:"updated_at"`
}

// CodeFor returns a pointer to the verification code slot for the channel,
// so callers can overwrite it in place on re-issue.
func (i *Identity) CodeFor(ch Channel) *VerificationCode {
	if ch == ChannelPhone {
		return &i.PhoneCode
	}
	return &i.EmailCode
}

// VerifiedOn reports whether the channel's contact point has been verified.
func (i *Identity) VerifiedOn(ch Channel) bool {
	if ch == ChannelPhone {
		return i.PhoneVerified
	}
	return i.EmailVerified
}

func (i *Identity) SetVerified(ch Channel, v bool) {
	if ch == ChannelPhone {
		i.PhoneVerified = v
		return
	}
	i.EmailVerified = v
}

// ContactFor returns the address a code for the channel should be sent to.
func (i *Identity) ContactFor(ch Channel) string {
	if ch == ChannelPhone {
		return i.Phone
	}
	return i.Email
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=8,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=7,max=15"`
	Password string `json:"password" validate:"required,min=8,max=32"`
	Lang     string `json:"lang"`
}

type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=8,max=64"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=7,max=15"`
	Password *string `json:"password" validate:"omitempty,min=8,max=32"`
	Avatar   *Avatar `json:"avatar"`
	Lang     string  `json:"lang"`
}

// Avatar carries an uploaded image as base64 plus its MIME type.
type Avatar struct {
	Data        string `json:"data" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type VerifyCodeRequest struct {
	Code int `json:"code" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required,min=8,max=32"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=32"`
}

type ResetPasswordRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Code         int    `json:"code" validate:"required"`
	NewPassword  string `json:"newPassword" validate:"required,min=8,max=32"`
}

// AdminUpdateRequest targets an arbitrary identity by contact point.
type AdminUpdateRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	UpdateProfileRequest
}

type ChangeRoleRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Role         string `json:"role" validate:"required"`
}

type AdminVerifyRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
}
