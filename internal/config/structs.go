package config

import (
	"time"

	"github.com/ai-job-readiness/jobready/internal/logger"
)

// Default expiry values applied when the config leaves them unset.
const (
	DefaultAccessExpiry   = 15 * time.Minute
	DefaultRefreshExpiry  = 30 * 24 * time.Hour
	DefaultResetTokenTTL  = time.Hour
	DefaultVerifyTokenTTL = 24 * time.Hour
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
}

// JWT holds the token signing settings.
type JWT struct {
	Secret        string        // HMAC signing secret
	Issuer        string        // iss claim, defaults to the app title
	AccessExpiry  time.Duration // lifetime of access tokens
	RefreshExpiry time.Duration // lifetime of refresh tokens
}

// LDAP holds the optional LDAP authentication source settings.
type LDAP struct {
	Enabled       bool
	URL           string // e.g. ldaps://directory.example.com:636
	StartTLS      bool
	SkipTLSVerify bool
	BindDN        string // service account used to search for users
	BindPassword  string
	BaseDN        string
	UserFilter    string // e.g. (&(objectClass=person)(mail=%s))
	AttrEmail     string
	AttrFirstName string
	AttrLastName  string
}

// OIDC holds the optional OpenID Connect authentication source settings.
type OIDC struct {
	Enabled      bool
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Auth bundles all authentication related settings.
type Auth struct {
	JWT            JWT
	LDAP           LDAP
	OIDC           OIDC
	ResetTokenTTL  time.Duration // lifetime of password reset tokens
	VerifyTokenTTL time.Duration // lifetime of email verification tokens
}
