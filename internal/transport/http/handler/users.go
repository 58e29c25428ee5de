package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/identity-api/internal/access"
	"github.com/identity-api/internal/application/identity"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/pkg/code"
	"github.com/identity-api/internal/transport/http/middleware"
	"github.com/identity-api/internal/transport/http/respond"
)

// UserHandler serves every identity route past registration and login,
// including the admin variants.
type UserHandler struct {
	svc    identity.Service
	policy *access.Policy
}

func NewUserHandler(svc identity.Service, policy *access.Policy) *UserHandler {
	return &UserHandler{svc: svc, policy: policy}
}

// IsAuth confirms the bearer token still resolves to a live identity and
// touches last_login as a side effect.
func (h *UserHandler) IsAuth(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, domain.ErrInvalidToken)
		return
	}
	if err := h.svc.TouchLastLogin(r.Context(), ident); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, IdentityEnvelope{User: ident})
}

// Verify consumes the code for the channel baked into the route.
func (h *UserHandler) Verify(ch domain.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			respond.Error(w, domain.ErrInvalidToken)
			return
		}
		var req domain.VerifyCodeRequest
		if err := decodeValid(r, &req); err != nil {
			respond.Error(w, err)
			return
		}
		if !code.ValidInput(req.Code) {
			respond.Error(w, domain.ErrInvalidCode)
			return
		}
		if err := h.svc.Verify(r.Context(), ident, ch, req.Code); err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, IdentityEnvelope{User: ident})
	}
}

// ResendCode re-issues and re-sends the channel's verification code.
func (h *UserHandler) ResendCode(ch domain.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			respond.Error(w, domain.ErrInvalidToken)
			return
		}
		lang := domain.ParseLanguage(r.URL.Query().Get("lang"))
		if err := h.svc.ResendCode(r.Context(), ident, ch, lang); err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, MessageEnvelope{OK: true, Message: sentMessage(ch)})
	}
}

// ChangePassword swaps the password digest and returns a token signed against
// the new one. The old token stops working the moment this returns.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, domain.ErrInvalidToken)
		return
	}
	var req domain.ChangePasswordRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	token, err := h.svc.ChangePassword(r.Context(), ident, req.OldPassword, req.NewPassword)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: ident, Token: token})
}

// SendResetCode is the unauthenticated first half of the forgot-password
// flow. The channel comes from the sendTo query parameter, defaulting to
// email.
func (h *UserHandler) SendResetCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	emailOrPhone := q.Get("emailOrPhone")
	if emailOrPhone == "" {
		respond.Error(w, domain.ErrValidation)
		return
	}
	ch := domain.ParseChannel(q.Get("sendTo"))
	lang := domain.ParseLanguage(q.Get("lang"))
	if err := h.svc.SendResetCode(r.Context(), emailOrPhone, ch, lang); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, MessageEnvelope{OK: true, Message: msgResetCodeSent})
}

// ResetPassword is the unauthenticated second half of the forgot-password
// flow: it consumes the reset code and stores the new digest.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	if !code.ValidInput(req.Code) {
		respond.Error(w, domain.ErrInvalidCode)
		return
	}
	ident, err := h.svc.ResetPassword(r.Context(), req.EmailOrPhone, req.Code, req.NewPassword)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: ident})
}

// Update applies a partial profile update to the caller's own record.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, domain.ErrInvalidToken)
		return
	}
	var req domain.UpdateProfileRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	updated, token, err := h.svc.UpdateProfile(r.Context(), ident, req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: updated, Token: token})
}

// CheckAccess reports the caller's grant for an (action, resource) pair
// without performing anything.
func (h *UserHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, domain.ErrInvalidToken)
		return
	}
	q := r.URL.Query()
	perm := h.policy.Can(ident.Role, access.Action(q.Get("action")), access.Resource(q.Get("resource")))
	respond.JSON(w, http.StatusOK, perm)
}

///////////////////////////// ADMIN /////////////////////////////

// AdminUpdate applies a profile update to an identity resolved by contact
// point rather than by the caller's token.
func (h *UserHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminUpdateRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ident, err := h.svc.UpdateProfileByContact(r.Context(), req.EmailOrPhone, req.UpdateProfileRequest)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: ident})
}

// AdminChangeRole assigns a role from the supported set.
func (h *UserHandler) AdminChangeRole(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangeRoleRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ident, err := h.svc.ChangeRole(r.Context(), req.EmailOrPhone, req.Role)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: ident})
}

// AdminVerify marks both contact channels verified in one write.
func (h *UserHandler) AdminVerify(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminVerifyRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ident, err := h.svc.VerifyIdentity(r.Context(), req.EmailOrPhone)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, IdentityEnvelope{User: ident})
}

// AdminFind resolves an identity by contact point, filtered to the role in
// the route.
func (h *UserHandler) AdminFind(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if !domain.ValidRole(role) {
		respond.Error(w, domain.ErrInvalidRole)
		return
	}
	ident, err := h.svc.FindByEmailOrPhone(r.Context(), chi.URLParam(r, "id"), role)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, IdentityEnvelope{User: ident})
}
