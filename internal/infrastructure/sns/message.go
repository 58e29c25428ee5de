package sns

import (
	"fmt"

	"github.com/identity-api/internal/domain"
)

// CodeMessage renders the SMS body carrying a verification or reset code.
func CodeMessage(lang domain.Language, code int) string {
	if lang == domain.LangEN {
		return fmt.Sprintf("Your verification code is %04d. It expires in 10 minutes.", code)
	}
	return fmt.Sprintf("كود التحقق الخاص بك هو %04d. تنتهي صلاحيته خلال ١٠ دقائق.", code)
}
