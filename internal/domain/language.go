package domain

// Language selects which half of a bilingual message pair is rendered in
// outbound mail and SMS.
type Language string

const (
	LangEN Language = "en"
	LangAR Language = "ar"
)

// ParseLanguage normalizes a language tag. Unsupported values fall back to
// Arabic, the service default.
func ParseLanguage(s string) Language {
	if Language(s) == LangEN {
		return LangEN
	}
	return LangAR
}
