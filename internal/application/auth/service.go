package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/infrastructure/sns"
	"github.com/identity-api/internal/pkg/code"
	"github.com/identity-api/internal/pkg/id"
	"github.com/identity-api/internal/pkg/password"
)

// Service handles registration and login. Everything after login (code
// verification, password management, profile updates) lives in the identity
// service.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Identity, string, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Identity, string, error)
}

type identityStore interface {
	Create(ctx context.Context, ident *domain.Identity) error
	FindByEmailOrPhone(ctx context.Context, value string) (*domain.Identity, error)
	Update(ctx context.Context, identityID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(ident *domain.Identity) (string, error)
}

type service struct {
	repo      identityStore
	mailer    smtp.Mailer
	smsSender sns.SMSSender
	tokens    tokenSigner
	codes     code.Issuer
	now       func() time.Time
}

type ServiceDeps struct {
	IdentityRepo identityStore
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender
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
		tokens:    deps.Tokens,
		codes:     code.NewIssuer(now),
		now:       now,
	}
}

// Register creates an unverified identity with both verification codes
// pre-issued, then dispatches them. A duplicate email or phone surfaces as
// the conflict error from the persistence layer, not from a pre-check.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Identity, string, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	emailCode, err := s.codes.Issue()
	if err != nil {
		return nil, "", err
	}
	phoneCode, err := s.codes.Issue()
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	ident := &domain.Identity{
		IdentityID:   id.New(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		EmailCode:    emailCode,
		PhoneCode:    phoneCode,
		LastLogin:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, ident); err != nil {
		return nil, "", err
	}

	lang := domain.ParseLanguage(req.Lang)
	if err := s.mailer.Send(smtp.TemplateRegister, lang, ident.Email, smtp.TemplateData{
		Name: ident.Name,
		Code: emailCode.Code,
	}); err != nil {
		// The user has no other way to receive the email code.
		return nil, "", fmt.Errorf("%w: %v", domain.ErrMailDispatch, err)
	}
	if err := s.smsSender.SendSMS(ctx, ident.Phone, sns.CodeMessage(lang, phoneCode.Code)); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrMailDispatch, err)
	}

	token, err := s.tokens.Sign(ident)
	if err != nil {
		return nil, "", err
	}
	return ident, token, nil
}

// Login resolves the identity by email or phone, verifies the password, and
// touches last_login without rewriting the rest of the record.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Identity, string, error) {
	ident, err := s.repo.FindByEmailOrPhone(ctx, req.EmailOrPhone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("login: %w", domain.ErrNotFound)
		}
		return nil, "", err
	}
	if !password.Verify(req.Password, ident.PasswordHash) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrIncorrectCredentials)
	}

	ident.LastLogin = s.now().UTC()
	if err := s.repo.Update(ctx, ident.IdentityID, map[string]interface{}{
		"last_login": ident.LastLogin,
	}); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Sign(ident)
	if err != nil {
		return nil, "", err
	}
	return ident, token, nil
}
