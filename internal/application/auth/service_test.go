package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/pkg/password"
)

// --- mocks ---

type mockIdentityStore struct{ mock.Mock }

func (m *mockIdentityStore) Create(ctx context.Context, ident *domain.Identity) error {
	return m.Called(ctx, ident).Error(0)
}
func (m *mockIdentityStore) FindByEmailOrPhone(ctx context.Context, value string) (*domain.Identity, error) {
	args := m.Called(ctx, value)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityStore) Update(ctx context.Context, identityID string, updates map[string]interface{}) error {
	return m.Called(ctx, identityID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(kind smtp.TemplateKind, lang domain.Language, to string, data smtp.TemplateData) error {
	return m.Called(kind, lang, to, data).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, phone, msg string) error {
	return m.Called(ctx, phone, msg).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(ident *domain.Identity) (string, error) {
	args := m.Called(ident)
	return args.String(0), args.Error(1)
}

// --- builder ---

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockIdentityStore, ml *mockMailer, sms *mockSMSSender, signer *mockSigner) Service {
	return NewService(ServiceDeps{
		IdentityRepo: repo,
		Mailer:       ml,
		SMSSender:    sms,
		Tokens:       signer,
		Now:          func() time.Time { return testNow },
	})
}

func validRegister() domain.RegisterRequest {
	return domain.RegisterRequest{
		Name:     "Yousef Ahmad",
		Email:    "yousef@example.com",
		Phone:    "+962791234567",
		Password: "s3cret-pass",
		Lang:     "en",
	}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	repo := &mockIdentityStore{}
	ml := &mockMailer{}
	sms := &mockSMSSender{}
	signer := &mockSigner{}

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	ml.On("Send", smtp.TemplateRegister, domain.LangEN, "yousef@example.com", mock.Anything).Return(nil)
	sms.On("SendSMS", mock.Anything, "+962791234567", mock.Anything).Return(nil)
	signer.On("Sign", mock.Anything).Return("token-123", nil)

	svc := newTestService(repo, ml, sms, signer)
	ident, token, err := svc.Register(context.Background(), validRegister())

	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
	assert.NotEmpty(t, ident.IdentityID)
	assert.Equal(t, domain.RoleUser, ident.Role)
	assert.False(t, ident.EmailVerified)
	assert.False(t, ident.PhoneVerified)
	assert.True(t, password.Verify("s3cret-pass", ident.PasswordHash))
	assert.NotZero(t, ident.EmailCode.Code)
	assert.NotZero(t, ident.PhoneCode.Code)
	assert.Equal(t, testNow.Add(10*time.Minute), ident.EmailCode.ExpiresAt)
	assert.Equal(t, testNow, ident.CreatedAt)
	repo.AssertExpectations(t)
	ml.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestRegister_DuplicateContact(t *testing.T) {
	repo := &mockIdentityStore{}
	ml := &mockMailer{}
	sms := &mockSMSSender{}
	signer := &mockSigner{}

	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrEmailOrPhoneUsed)

	svc := newTestService(repo, ml, sms, signer)
	_, _, err := svc.Register(context.Background(), validRegister())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmailOrPhoneUsed))
	ml.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_MailDispatchFails(t *testing.T) {
	repo := &mockIdentityStore{}
	ml := &mockMailer{}
	sms := &mockSMSSender{}
	signer := &mockSigner{}

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	ml.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newTestService(repo, ml, sms, signer)
	_, _, err := svc.Register(context.Background(), validRegister())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMailDispatch))
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

// --- Login ---

func TestLogin_UnknownContact(t *testing.T) {
	repo := &mockIdentityStore{}
	repo.On("FindByEmailOrPhone", mock.Anything, "nobody@example.com").Return(nil, domain.ErrNotFound)

	svc := newTestService(repo, &mockMailer{}, &mockSMSSender{}, &mockSigner{})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		EmailOrPhone: "nobody@example.com",
		Password:     "whatever-pass",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLogin_StoreFailureIsNotNotFound(t *testing.T) {
	repo := &mockIdentityStore{}
	outage := errors.New("dynamo unavailable")
	repo.On("FindByEmailOrPhone", mock.Anything, "yousef@example.com").Return(nil, outage)

	svc := newTestService(repo, &mockMailer{}, &mockSMSSender{}, &mockSigner{})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		EmailOrPhone: "yousef@example.com",
		Password:     "whatever-pass",
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(err, outage))
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := password.Hash("right-password")
	require.NoError(t, err)

	repo := &mockIdentityStore{}
	repo.On("FindByEmailOrPhone", mock.Anything, "yousef@example.com").Return(&domain.Identity{
		IdentityID:   "id-1",
		Email:        "yousef@example.com",
		PasswordHash: hash,
	}, nil)

	svc := newTestService(repo, &mockMailer{}, &mockSMSSender{}, &mockSigner{})
	_, _, err = svc.Login(context.Background(), domain.LoginRequest{
		EmailOrPhone: "yousef@example.com",
		Password:     "wrong-password",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncorrectCredentials))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_Success_TouchesLastLogin(t *testing.T) {
	hash, err := password.Hash("right-password")
	require.NoError(t, err)

	repo := &mockIdentityStore{}
	signer := &mockSigner{}
	repo.On("FindByEmailOrPhone", mock.Anything, "+962791234567").Return(&domain.Identity{
		IdentityID:   "id-1",
		Phone:        "+962791234567",
		PasswordHash: hash,
	}, nil)
	repo.On("Update", mock.Anything, "id-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		_, ok := u["last_login"]
		return ok && len(u) == 1
	})).Return(nil)
	signer.On("Sign", mock.Anything).Return("token-456", nil)

	svc := newTestService(repo, &mockMailer{}, &mockSMSSender{}, signer)
	ident, token, err := svc.Login(context.Background(), domain.LoginRequest{
		EmailOrPhone: "+962791234567",
		Password:     "right-password",
	})

	require.NoError(t, err)
	assert.Equal(t, "token-456", token)
	assert.Equal(t, testNow, ident.LastLogin)
	repo.AssertExpectations(t)
}
