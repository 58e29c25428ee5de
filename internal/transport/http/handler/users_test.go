package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/identity-api/internal/access"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/transport/http/middleware"
	"github.com/identity-api/internal/transport/http/respond"
)

// --- mocks ---

type mockIdentityService struct{ mock.Mock }

func (m *mockIdentityService) TouchLastLogin(ctx context.Context, ident *domain.Identity) error {
	return m.Called(ctx, ident).Error(0)
}
func (m *mockIdentityService) Verify(ctx context.Context, ident *domain.Identity, ch domain.Channel, codeValue int) error {
	return m.Called(ctx, ident, ch, codeValue).Error(0)
}
func (m *mockIdentityService) ResendCode(ctx context.Context, ident *domain.Identity, ch domain.Channel, lang domain.Language) error {
	return m.Called(ctx, ident, ch, lang).Error(0)
}
func (m *mockIdentityService) ChangePassword(ctx context.Context, ident *domain.Identity, oldPassword, newPassword string) (string, error) {
	args := m.Called(ctx, ident, oldPassword, newPassword)
	return args.String(0), args.Error(1)
}
func (m *mockIdentityService) SendResetCode(ctx context.Context, emailOrPhone string, ch domain.Channel, lang domain.Language) error {
	return m.Called(ctx, emailOrPhone, ch, lang).Error(0)
}
func (m *mockIdentityService) ResetPassword(ctx context.Context, emailOrPhone string, codeValue int, newPassword string) (*domain.Identity, error) {
	args := m.Called(ctx, emailOrPhone, codeValue, newPassword)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityService) UpdateProfile(ctx context.Context, ident *domain.Identity, req domain.UpdateProfileRequest) (*domain.Identity, string, error) {
	args := m.Called(ctx, ident, req)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}
func (m *mockIdentityService) FindByEmailOrPhone(ctx context.Context, emailOrPhone, role string) (*domain.Identity, error) {
	args := m.Called(ctx, emailOrPhone, role)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityService) ChangeRole(ctx context.Context, emailOrPhone, role string) (*domain.Identity, error) {
	args := m.Called(ctx, emailOrPhone, role)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityService) VerifyIdentity(ctx context.Context, emailOrPhone string) (*domain.Identity, error) {
	args := m.Called(ctx, emailOrPhone)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityService) UpdateProfileByContact(ctx context.Context, emailOrPhone string, req domain.UpdateProfileRequest) (*domain.Identity, error) {
	args := m.Called(ctx, emailOrPhone, req)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func callerIdentity() *domain.Identity {
	return &domain.Identity{
		IdentityID:    "id-1",
		Role:          domain.RoleUser,
		Email:         "yousef@example.com",
		Phone:         "+962791234567",
		PhoneVerified: true,
	}
}

// authedRequest builds a request that already passed the auth middleware.
func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithIdentity(req.Context(), callerIdentity()))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}

// --- Verify ---

func TestVerify_OutOfRangeCodeRejectedBeforeService(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewUserHandler(svc, access.NewPolicy())

	rec := httptest.NewRecorder()
	h.Verify(domain.ChannelEmail)(rec, authedRequest(http.MethodPost, "/users/verify-email", `{"code":99}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindInvalidCode, decodeError(t, rec).Kind)
	svc.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_MissingCode(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewUserHandler(svc, access.NewPolicy())

	rec := httptest.NewRecorder()
	h.Verify(domain.ChannelPhone)(rec, authedRequest(http.MethodPost, "/users/verify-phone", `{}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.KindValidation, decodeError(t, rec).Kind)
	svc.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_WellFormedCodeReachesService(t *testing.T) {
	svc := &mockIdentityService{}
	svc.On("Verify", mock.Anything, mock.Anything, domain.ChannelEmail, 4321).Return(nil)
	h := NewUserHandler(svc, access.NewPolicy())

	rec := httptest.NewRecorder()
	h.Verify(domain.ChannelEmail)(rec, authedRequest(http.MethodPost, "/users/verify-email", `{"code":4321}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

// --- ChangePassword ---

func TestChangePassword_ValidationFailure(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewUserHandler(svc, access.NewPolicy())

	rec := httptest.NewRecorder()
	h.ChangePassword(rec, authedRequest(http.MethodPatch, "/users/change-password",
		`{"oldPassword":"current-pass","newPassword":"short"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.KindValidation, decodeError(t, rec).Kind)
	svc.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- ResetPassword ---

func TestResetPassword_OutOfRangeCodeRejectedBeforeService(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewUserHandler(svc, access.NewPolicy())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/forgot-password",
		strings.NewReader(`{"emailOrPhone":"yousef@example.com","code":123456,"newPassword":"brand-new-pass"}`))
	h.ResetPassword(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindInvalidCode, decodeError(t, rec).Kind)
	svc.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- SendResetCode ---

func TestSendResetCode_MissingContact(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewUserHandler(svc, access.NewPolicy())

	rec := httptest.NewRecorder()
	h.SendResetCode(rec, httptest.NewRequest(http.MethodGet, "/users/forgot-password", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.KindValidation, decodeError(t, rec).Kind)
	svc.AssertNotCalled(t, "SendResetCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
