package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/infrastructure/sns"
	"github.com/identity-api/internal/pkg/code"
	"github.com/identity-api/internal/pkg/id"
	"github.com/identity-api/internal/pkg/password"
)

// Service drives every identity lifecycle operation past login: code
// verification, resends, password change and reset, profile updates, and
// the admin variants that bypass ownership.
type Service interface {
	TouchLastLogin(ctx context.Context, ident *domain.Identity) error
	Verify(ctx context.Context, ident *domain.Identity, ch domain.Channel, codeValue int) error
	ResendCode(ctx context.Context, ident *domain.Identity, ch domain.Channel, lang domain.Language) error
	ChangePassword(ctx context.Context, ident *domain.Identity, oldPassword, newPassword string) (string, error)
	SendResetCode(ctx context.Context, emailOrPhone string, ch domain.Channel, lang domain.Language) error
	ResetPassword(ctx context.Context, emailOrPhone string, codeValue int, newPassword string) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, ident *domain.Identity, req domain.UpdateProfileRequest) (*domain.Identity, string, error)

	FindByEmailOrPhone(ctx context.Context, emailOrPhone, role string) (*domain.Identity, error)
	ChangeRole(ctx context.Context, emailOrPhone, role string) (*domain.Identity, error)
	VerifyIdentity(ctx context.Context, emailOrPhone string) (*domain.Identity, error)
	UpdateProfileByContact(ctx context.Context, emailOrPhone string, req domain.UpdateProfileRequest) (*domain.Identity, error)
}

type identityStore interface {
	FindByID(ctx context.Context, identityID string) (*domain.Identity, error)
	FindByEmailOrPhone(ctx context.Context, value string) (*domain.Identity, error)
	Save(ctx context.Context, ident *domain.Identity, prevEmail, prevPhone string) error
	Update(ctx context.Context, identityID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(ident *domain.Identity) (string, error)
}

type avatarStore interface {
	UploadBase64(ctx context.Context, key, b64Data, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) string
}

type service struct {
	repo      identityStore
	mailer    smtp.Mailer
	smsSender sns.SMSSender
	avatars   avatarStore
	tokens    tokenSigner
	codes     code.Issuer
	now       func() time.Time
}

type ServiceDeps struct {
	IdentityRepo identityStore
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender
	AvatarStore  avatarStore
	Tokens       tokenSigner
	Now          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      deps.IdentityRepo,
		mailer:    deps.Mailer,
		smsSender: deps.SMSSender,
		avatars:   deps.AvatarStore,
		tokens:    deps.Tokens,
		codes:     code.NewIssuer(now),
		now:       now,
	}
}

// TouchLastLogin updates last_login only, leaving the rest of the record
// untouched.
func (s *service) TouchLastLogin(ctx context.Context, ident *domain.Identity) error {
	ident.LastLogin = s.now().UTC()
	return s.repo.Update(ctx, ident.IdentityID, map[string]interface{}{
		"last_login": ident.LastLogin,
	})
}

// Verify consumes a channel's verification code. All checks run before any
// field changes; the code slot is cleared on success so the same code can
// never be replayed.
func (s *service) Verify(ctx context.Context, ident *domain.Identity, ch domain.Channel, codeValue int) error {
	if ident.VerifiedOn(ch) {
		return fmt.Errorf("verify %s: %w", ch, ch.AlreadyVerifiedError())
	}
	slot := ident.CodeFor(ch)
	if !code.Matches(*slot, codeValue) {
		return fmt.Errorf("verify %s: %w", ch, domain.ErrIncorrectCode)
	}
	if !s.codes.IsValid(*slot) {
		return fmt.Errorf("verify %s: %w", ch, domain.ErrExpiredCode)
	}

	ident.SetVerified(ch, true)
	*slot = domain.VerificationCode{}
	return s.repo.Save(ctx, ident, ident.Email, ident.Phone)
}

// ResendCode re-issues a channel's code, overwriting the previous one, and
// dispatches it. Dispatch failure propagates: the caller has no other way to
// receive the code.
func (s *service) ResendCode(ctx context.Context, ident *domain.Identity, ch domain.Channel, lang domain.Language) error {
	if ident.VerifiedOn(ch) {
		return fmt.Errorf("resend %s code: %w", ch, ch.AlreadyVerifiedError())
	}

	fresh, err := s.codes.Issue()
	if err != nil {
		return err
	}
	*ident.CodeFor(ch) = fresh
	if err := s.repo.Save(ctx, ident, ident.Email, ident.Phone); err != nil {
		return err
	}

	return s.dispatchCode(ctx, ident, ch, lang, smtp.TemplateRegister, fresh.Code)
}

// ChangePassword verifies the old password, stores a new digest, and returns
// a token signed against the new digest. Every token issued before this call
// is invalid the moment the save lands.
func (s *service) ChangePassword(ctx context.Context, ident *domain.Identity, oldPassword, newPassword string) (string, error) {
	if !password.Verify(oldPassword, ident.PasswordHash) {
		return "", fmt.Errorf("change password: %w", domain.ErrIncorrectOldPassword)
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return "", err
	}
	ident.PasswordHash = hash
	if err := s.repo.Save(ctx, ident, ident.Email, ident.Phone); err != nil {
		return "", err
	}
	return s.tokens.Sign(ident)
}

// SendResetCode issues a password reset code for the identity owning
// emailOrPhone and dispatches it over the chosen channel.
func (s *service) SendResetCode(ctx context.Context, emailOrPhone string, ch domain.Channel, lang domain.Language) error {
	ident, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return notFoundAs(err, domain.ErrEmailOrPhoneNotUsed, "reset code")
	}

	fresh, err := s.codes.Issue()
	if err != nil {
		return err
	}
	ident.ResetCode = fresh
	if err := s.repo.Save(ctx, ident, ident.Email, ident.Phone); err != nil {
		return err
	}

	return s.dispatchCode(ctx, ident, ch, lang, smtp.TemplateForgotPassword, fresh.Code)
}

// ResetPassword consumes a reset code and stores a new password digest.
func (s *service) ResetPassword(ctx context.Context, emailOrPhone string, codeValue int, newPassword string) (*domain.Identity, error) {
	ident, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrEmailOrPhoneNotUsed, "reset password")
	}
	if !code.Matches(ident.ResetCode, codeValue) {
		return nil, fmt.Errorf("reset password: %w", domain.ErrIncorrectCode)
	}
	if !s.codes.IsValid(ident.ResetCode) {
		return nil, fmt.Errorf("reset password: %w", domain.ErrExpiredCode)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	ident.PasswordHash = hash
	ident.ResetCode = domain.VerificationCode{}
	if err := s.repo.Save(ctx, ident, ident.Email, ident.Phone); err != nil {
		return nil, err
	}
	return ident, nil
}

// UpdateProfile applies the changed fields. Contact uniqueness is re-checked
// before anything mutates, a contact change resets that channel's
// verification and re-issues its code, and the write is skipped entirely
// when nothing actually changed.
func (s *service) UpdateProfile(ctx context.Context, ident *domain.Identity, req domain.UpdateProfileRequest) (*domain.Identity, string, error) {
	updated, err := s.applyProfile(ctx, ident, req)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Sign(updated)
	if err != nil {
		return nil, "", err
	}
	return updated, token, nil
}

func (s *service) applyProfile(ctx context.Context, ident *domain.Identity, req domain.UpdateProfileRequest) (*domain.Identity, error) {
	lang := domain.ParseLanguage(req.Lang)

	emailChanging := req.Email != nil && !strings.EqualFold(*req.Email, ident.Email)
	phoneChanging := req.Phone != nil && *req.Phone != ident.Phone

	// Uniqueness pre-checks run before any field mutates, so a rejected
	// update leaves the record exactly as loaded. The persistence markers
	// still catch the check-then-save race at write time.
	if emailChanging {
		if err := s.contactFree(ctx, *req.Email); err != nil {
			return nil, err
		}
	}
	if phoneChanging {
		if err := s.contactFree(ctx, *req.Phone); err != nil {
			return nil, err
		}
	}

	prevEmail, prevPhone := ident.Email, ident.Phone
	changed := false

	if req.Name != nil && *req.Name != ident.Name {
		ident.Name = *req.Name
		changed = true
	}

	if req.Password != nil {
		hash, err := password.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		ident.PasswordHash = hash
		changed = true
	}

	var avatarErr error
	if req.Avatar != nil {
		if avatarErr = s.replaceAvatar(ctx, ident, req.Avatar); avatarErr == nil {
			changed = true
		}
	}

	if emailChanging {
		fresh, err := s.codes.Issue()
		if err != nil {
			return nil, err
		}
		ident.Email = *req.Email
		ident.EmailVerified = false
		ident.EmailCode = fresh
		changed = true
		if err := s.mailer.Send(smtp.TemplateChangeEmail, lang, ident.Email, smtp.TemplateData{
			Name: ident.Name,
			Code: fresh.Code,
		}); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMailDispatch, err)
		}
	}

	if phoneChanging {
		fresh, err := s.codes.Issue()
		if err != nil {
			return nil, err
		}
		ident.Phone = *req.Phone
		ident.PhoneVerified = false
		ident.PhoneCode = fresh
		changed = true
		if err := s.smsSender.SendSMS(ctx, ident.Phone, sns.CodeMessage(lang, fresh.Code)); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMailDispatch, err)
		}
	}

	if changed {
		if err := s.repo.Save(ctx, ident, prevEmail, prevPhone); err != nil {
			return nil, err
		}
	}
	// A failed avatar upload never blocks the other fields, but the caller
	// has to hear about it.
	if avatarErr != nil {
		return nil, avatarErr
	}
	return ident, nil
}

// replaceAvatar stores the new file, then best-effort deletes the prior one.
// An upload failure is reported to the caller; a delete failure is only
// logged, since the new avatar is already in place.
func (s *service) replaceAvatar(ctx context.Context, ident *domain.Identity, avatar *domain.Avatar) error {
	key := id.New() + extensionFor(avatar.ContentType)
	url, err := s.avatars.UploadBase64(ctx, key, avatar.Data, avatar.ContentType)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFileUpload, err)
	}
	if prior := ident.AvatarURL; prior != "" {
		if err := s.avatars.Delete(ctx, s.avatars.KeyFromURL(prior)); err != nil {
			slog.Warn("failed to delete prior avatar", "identity_id", ident.IdentityID, "err", err)
		}
	}
	ident.AvatarURL = url
	return nil
}

///////////////////////////// ADMIN /////////////////////////////

// FindByEmailOrPhone resolves an identity for an admin, optionally requiring
// a specific role.
func (s *service) FindByEmailOrPhone(ctx context.Context, emailOrPhone, role string) (*domain.Identity, error) {
	ident, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrNotFound, "find identity")
	}
	if role != "" && ident.Role != role {
		return nil, fmt.Errorf("find identity: %w", domain.ErrFoundWithInvalidRole)
	}
	return ident, nil
}

// ChangeRole assigns a role from the closed supported set.
func (s *service) ChangeRole(ctx context.Context, emailOrPhone, role string) (*domain.Identity, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("change role: %w", domain.ErrInvalidRole)
	}
	ident, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrNotFound, "change role")
	}
	if ident.Role == role {
		return ident, nil
	}
	ident.Role = role
	if err := s.repo.Save(ctx, ident, ident.Email, ident.Phone); err != nil {
		return nil, err
	}
	return ident, nil
}

// VerifyIdentity marks both channels verified, short-circuiting when both
// flags are already set.
func (s *service) VerifyIdentity(ctx context.Context, emailOrPhone string) (*domain.Identity, error) {
	ident, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrNotFound, "verify identity")
	}
	if ident.EmailVerified && ident.PhoneVerified {
		return nil, fmt.Errorf("verify identity: %w", domain.ErrAlreadyVerified)
	}
	ident.EmailVerified = true
	ident.PhoneVerified = true
	ident.EmailCode = domain.VerificationCode{}
	ident.PhoneCode = domain.VerificationCode{}
	if err := s.repo.Save(ctx, ident, ident.Email, ident.Phone); err != nil {
		return nil, err
	}
	return ident, nil
}

// UpdateProfileByContact applies the same profile update path to an
// arbitrary identity, resolved by email or phone.
func (s *service) UpdateProfileByContact(ctx context.Context, emailOrPhone string, req domain.UpdateProfileRequest) (*domain.Identity, error) {
	ident, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrNotFound, "update identity")
	}
	return s.applyProfile(ctx, ident, req)
}

// contactFree reports a conflict when the contact point resolves to an
// existing identity. A store failure is neither free nor taken; it passes
// through untouched.
func (s *service) contactFree(ctx context.Context, value string) error {
	_, err := s.repo.FindByEmailOrPhone(ctx, value)
	if err == nil {
		return fmt.Errorf("update profile: %w", domain.ErrEmailOrPhoneUsed)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// notFoundAs maps a store miss onto the operation's own domain error and
// lets every other failure pass through, so an outage is never reported as
// a missing user.
func notFoundAs(err error, sentinel *domain.Error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return err
}

func (s *service) dispatchCode(ctx context.Context, ident *domain.Identity, ch domain.Channel, lang domain.Language, kind smtp.TemplateKind, codeValue int) error {
	if ch == domain.ChannelPhone {
		if err := s.smsSender.SendSMS(ctx, ident.Phone, sns.CodeMessage(lang, codeValue)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMailDispatch, err)
		}
		return nil
	}
	if err := s.mailer.Send(kind, lang, ident.Email, smtp.TemplateData{
		Name: ident.Name,
		Code: codeValue,
	}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMailDispatch, err)
	}
	return nil
}

// extensionFor maps an avatar MIME type to a file extension for the stored key.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
