package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/domain"
)

// TemplateKind selects which bilingual mail template is rendered.
type TemplateKind string

const (
	TemplateRegister       TemplateKind = "register"
	TemplateChangeEmail    TemplateKind = "changeEmail"
	TemplateForgotPassword TemplateKind = "forgotPassword"
)

// TemplateData is the payload rendered into a template.
type TemplateData struct {
	Name string
	Code int
}

// Mailer sends templated verification mail.
type Mailer interface {
	Send(kind TemplateKind, lang domain.Language, to string, data TemplateData) error
}

type template struct {
	subject  domain.Message
	greeting domain.Message
	body     domain.Message // rendered with the recipient name and code
}

var templates = map[TemplateKind]template{
	TemplateRegister: {
		subject:  domain.Message{EN: "Activate your account", AR: "تفعيل حسابك"},
		greeting: domain.Message{EN: "Hello %s,", AR: "مرحباً %s،"},
		body: domain.Message{
			EN: "Welcome aboard! Your email verification code is %04d. It expires in 10 minutes.",
			AR: "أهلاً بك! كود تفعيل بريدك الإلكتروني هو %04d. تنتهي صلاحيته خلال ١٠ دقائق.",
		},
	},
	TemplateChangeEmail: {
		subject:  domain.Message{EN: "Verify your new email", AR: "تأكيد بريدك الإلكتروني الجديد"},
		greeting: domain.Message{EN: "Hello %s,", AR: "مرحباً %s،"},
		body: domain.Message{
			EN: "You changed your email address. Your verification code is %04d. It expires in 10 minutes.",
			AR: "لقد قمت بتغيير بريدك الإلكتروني. كود التفعيل هو %04d. تنتهي صلاحيته خلال ١٠ دقائق.",
		},
	},
	TemplateForgotPassword: {
		subject:  domain.Message{EN: "Reset your password", AR: "إعادة تعيين كلمة المرور"},
		greeting: domain.Message{EN: "Hello %s,", AR: "مرحباً %s،"},
		body: domain.Message{
			EN: "Your password reset code is %04d. It expires in 10 minutes. If you didn't request this, ignore this message.",
			AR: "كود إعادة تعيين كلمة المرور هو %04d. تنتهي صلاحيته خلال ١٠ دقائق. إذا لم تطلب ذلك، تجاهل هذه الرسالة.",
		},
	},
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) Send(kind TemplateKind, lang domain.Language, to string, data TemplateData) error {
	tpl, ok := templates[kind]
	if !ok {
		return fmt.Errorf("unknown mail template %q", kind)
	}

	subject := pick(tpl.subject, lang)
	body := fmt.Sprintf(pick(tpl.greeting, lang), data.Name) + "\r\n\r\n" +
		fmt.Sprintf(pick(tpl.body, lang), data.Code)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

func pick(msg domain.Message, lang domain.Language) string {
	if lang == domain.LangEN {
		return msg.EN
	}
	return msg.AR
}
