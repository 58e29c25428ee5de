package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/pkg/validate"
)

// IdentityEnvelope wraps responses carrying the caller's record and a
// (possibly re-issued) bearer token.
type IdentityEnvelope struct {
	User  *domain.Identity `json:"user"`
	Token string           `json:"token,omitempty"`
}

// MessageEnvelope wraps acknowledgements that carry no record.
type MessageEnvelope struct {
	OK      bool           `json:"ok"`
	Message domain.Message `json:"message"`
}

var (
	msgEmailCodeSent = domain.Message{
		EN: "Verification code sent to your email",
		AR: "تم إرسال كود التحقق إلى بريدك الإلكتروني",
	}
	msgPhoneCodeSent = domain.Message{
		EN: "Verification code sent to your phone",
		AR: "تم إرسال كود التحقق إلى هاتفك",
	}
	msgResetCodeSent = domain.Message{
		EN: "Password reset code sent",
		AR: "تم إرسال كود إعادة تعيين كلمة المرور",
	}
)

func sentMessage(ch domain.Channel) domain.Message {
	if ch == domain.ChannelPhone {
		return msgPhoneCodeSent
	}
	return msgEmailCodeSent
}

// decodeValid decodes the JSON body into v and runs its validate tags.
// Failures map to the validation error kind.
func decodeValid(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", domain.ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
