package auth

import (
	"crypto/tls"
	"fmt"

	ldap "github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
)

// LDAPProvider authenticates accounts against an LDAP or Active
// Directory server using a bind-search-bind flow: bind with the service
// credential, search for the user entry, then bind as the user to verify
// the password. Matched users are provisioned as local Account rows
// keyed on their DN.
type LDAPProvider struct {
	db  *gorm.DB
	cfg config.LDAP
}

// NewLDAPProvider returns an LDAPProvider for the given configuration.
func NewLDAPProvider(db *gorm.DB, cfg config.LDAP) *LDAPProvider {
	return &LDAPProvider{db: db, cfg: cfg}
}

// Enabled reports whether LDAP authentication is configured.
func (p *LDAPProvider) Enabled() bool {
	return p.cfg.Enabled
}

// Authenticate verifies the credential against the directory and returns
// the provisioned account.
func (p *LDAPProvider) Authenticate(username, password string) (*models.Account, error) {
	if !p.cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	conn, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Bind(p.cfg.BindDN, p.cfg.BindPassword); err != nil {
		return nil, errors.Wrap(err, "ldap service bind failed")
	}

	entry, err := p.searchUser(conn, username)
	if err != nil {
		return nil, err
	}

	// Second bind as the user proves the password.
	if err := conn.Bind(entry.DN, password); err != nil {
		log.Debug().Str("dn", entry.DN).Msg("ldap user bind rejected")
		return nil, ErrInvalidPassword
	}

	account, err := p.upsertAccount(entry)
	if err != nil {
		return nil, err
	}

	if !account.Active {
		return nil, ErrAccountDisabled
	}

	return account, nil
}

// TestConnection verifies the server is reachable with the service
// credential. Used by the config check command.
func (p *LDAPProvider) TestConnection() error {
	if !p.cfg.Enabled {
		return ErrLDAPDisabled
	}

	conn, err := p.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	return errors.Wrap(conn.Bind(p.cfg.BindDN, p.cfg.BindPassword), "ldap service bind failed")
}

func (p *LDAPProvider) connect() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(p.cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to ldap server")
	}

	if p.cfg.StartTLS {
		tlsConfig := &tls.Config{InsecureSkipVerify: p.cfg.SkipTLSVerify} //nolint:gosec
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "ldap starttls failed")
		}
	}

	return conn, nil
}

func (p *LDAPProvider) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	filter := fmt.Sprintf(p.cfg.UserFilter, ldap.EscapeFilter(username))

	req := ldap.NewSearchRequest(
		p.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{"dn", p.cfg.AttrEmail, p.cfg.AttrFirstName, p.cfg.AttrLastName},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.Wrap(err, "ldap search failed")
	}

	if len(res.Entries) == 0 {
		return nil, ErrAccountNotFound
	}

	return res.Entries[0], nil
}

// upsertAccount provisions or refreshes the Account row for a directory
// entry, keyed on the entry DN. Directory users never carry a local
// password.
func (p *LDAPProvider) upsertAccount(entry *ldap.Entry) (*models.Account, error) {
	var account models.Account

	err := p.db.First(&account, "external_id = ? AND auth_source = ?",
		entry.DN, models.AuthSourceLDAP).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.Account{
			Active:     true,
			Verified:   true,
			Email:      normalizeEmail(entry.GetAttributeValue(p.cfg.AttrEmail)),
			FirstName:  entry.GetAttributeValue(p.cfg.AttrFirstName),
			LastName:   entry.GetAttributeValue(p.cfg.AttrLastName),
			AuthSource: models.AuthSourceLDAP,
			ExternalID: entry.DN,
		}

		if err := p.db.Create(&account).Error; err != nil {
			return nil, errors.Wrap(err, "failed to provision ldap account")
		}

		log.Info().Str("email", account.Email).Msg("provisioned ldap account")

		return &account, nil

	case err != nil:
		return nil, errors.Wrap(err, "failed to query ldap account")
	}

	// Refresh profile attributes from the directory on every login.
	updates := map[string]interface{}{
		"email":      normalizeEmail(entry.GetAttributeValue(p.cfg.AttrEmail)),
		"first_name": entry.GetAttributeValue(p.cfg.AttrFirstName),
		"last_name":  entry.GetAttributeValue(p.cfg.AttrLastName),
	}

	if err := p.db.Model(&account).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "failed to refresh ldap account")
	}

	return &account, nil
}
