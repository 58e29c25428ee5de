package http

import (
	"github.com/identity-api/internal/infrastructure/dynamo"
	s3infra "github.com/identity-api/internal/infrastructure/s3"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/infrastructure/sns"
	"github.com/identity-api/internal/infrastructure/token"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	IdentityRepo *dynamo.IdentityRepo
	AvatarStore  *s3infra.Store
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender
	Tokens       *token.Provider
}
