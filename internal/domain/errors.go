package domain

// Kind classifies a domain error independently of any transport status code.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInvalidToken       Kind = "invalid_token"
	KindForbidden          Kind = "forbidden"
	KindInvalidCode        Kind = "invalid_code"
	KindIncorrectCode      Kind = "incorrect_code"
	KindExpiredCode        Kind = "expired_code"
	KindAlreadyVerified    Kind = "already_verified"
	KindInvalidRole        Kind = "invalid_role"
	KindValidation         Kind = "validation_failed"
	KindUpstream           Kind = "upstream_failure"
	KindInternal           Kind = "internal"
)

// Message is a bilingual user-facing message pair.
type Message struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

// Error is a domain error carrying its kind and a bilingual message so the
// transport boundary can render it without re-deriving context. Services wrap
// these sentinels so handlers can map kinds to status codes without leaking
// infrastructure details.
type Error struct {
	Kind    Kind
	Message Message
}

func (e *Error) Error() string { return e.Message.EN }

var (
	ErrInternal = &Error{KindInternal, Message{
		EN: "An unexpected error happened on the server",
		AR: "حصل خطأ غير متوقع في الخادم",
	}}
	ErrNotFound = &Error{KindNotFound, Message{
		EN: "User was not found",
		AR: "المستخدم غير موجود",
	}}
	ErrEmailOrPhoneUsed = &Error{KindConflict, Message{
		EN: "Email or phone is already used",
		AR: "البريد الإلكتروني أو رقم الهاتف مستخدم مسبقاً",
	}}
	ErrEmailOrPhoneNotUsed = &Error{KindNotFound, Message{
		EN: "Email or phone is not used",
		AR: "البريد الإلكتروني أو رقم الهاتف غير مستخدم",
	}}
	ErrIncorrectCredentials = &Error{KindInvalidCredentials, Message{
		EN: "Incorrect credentials",
		AR: "بيانات الدخول غير صحيحة",
	}}
	ErrIncorrectOldPassword = &Error{KindInvalidCredentials, Message{
		EN: "Incorrect old password",
		AR: "كلمة المرور القديمة غير صحيحة",
	}}
	ErrInvalidToken = &Error{KindInvalidToken, Message{
		EN: "You're unauthorized",
		AR: "يجب عليك تسجيل الدخول",
	}}
	ErrHasNoRights = &Error{KindForbidden, Message{
		EN: "You don't have enough rights",
		AR: "ليس لديك الصلاحيّات الكافية",
	}}
	ErrPhoneNotVerified = &Error{KindForbidden, Message{
		EN: "You have to verify your phone to use the app",
		AR: "يجب عليك تفعيل رقم هاتفك لتتمكن من إستخدام التطبيق",
	}}
	ErrInvalidCode = &Error{KindInvalidCode, Message{
		EN: "Invalid verification code",
		AR: "الكود غير صالح",
	}}
	ErrIncorrectCode = &Error{KindIncorrectCode, Message{
		EN: "Incorrect verification code",
		AR: "الكود غير صحيح",
	}}
	ErrExpiredCode = &Error{KindExpiredCode, Message{
		EN: "Verification code is expired",
		AR: "الكود منتهي الصلاحيّة",
	}}
	ErrEmailAlreadyVerified = &Error{KindAlreadyVerified, Message{
		EN: "Your email is already verified",
		AR: "تم التحقق من بريدك الإلكتروني مسبقاً",
	}}
	ErrPhoneAlreadyVerified = &Error{KindAlreadyVerified, Message{
		EN: "Your phone is already verified",
		AR: "تم التحقق من رقم هاتفك مسبقاً",
	}}
	ErrAlreadyVerified = &Error{KindAlreadyVerified, Message{
		EN: "User's email and phone are already verified",
		AR: "تم التحقق من رقم هاتف وبريد المستخدم مسبقاً",
	}}
	ErrInvalidRole = &Error{KindInvalidRole, Message{
		EN: "Invalid user role",
		AR: "الصلاحية المختارة غير صالحة",
	}}
	ErrFoundWithInvalidRole = &Error{KindNotFound, Message{
		EN: "User is registered with another role",
		AR: "المستخدم مسجّل بصلاحية أخرى",
	}}
	ErrValidation = &Error{KindValidation, Message{
		EN: "Invalid request",
		AR: "الطلب غير صالح",
	}}
	ErrMailDispatch = &Error{KindUpstream, Message{
		EN: "Could not send the message, try again later",
		AR: "تعذر إرسال الرسالة، حاول مرة أخرى لاحقاً",
	}}
	ErrFileUpload = &Error{KindUpstream, Message{
		EN: "Error uploading file",
		AR: "حصل خطأ عند رفع الملف",
	}}
)
