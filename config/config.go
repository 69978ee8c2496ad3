// Package config loads application configuration from the environment
// and an optional .env file using Viper. The resulting struct is built
// once at startup and passed into each component's constructor; nothing
// else reads the ambient environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mockidp/mockidp/certs"
)

// Config holds every setting the identity provider needs.
type Config struct {
	// Addr is the listen address for the HTTP server (e.g. :3000).
	Addr string `mapstructure:"ADDR"`
	// BaseURL is the externally visible base URL of this provider.
	BaseURL string `mapstructure:"BASE_URL"`

	// IDPEntityID identifies this provider in issued assertions and metadata.
	IDPEntityID string `mapstructure:"IDP_ENTITY_ID"`
	// IDPLoginURL and IDPLogoutURL are the SSO/SLO endpoints advertised in
	// metadata; empty values derive from BaseURL.
	IDPLoginURL  string `mapstructure:"IDP_LOGIN_URL"`
	IDPLogoutURL string `mapstructure:"IDP_LOGOUT_URL"`
	// SignResponse signs the enclosing Response element in addition to the
	// assertion, which some service providers require.
	SignResponse bool `mapstructure:"IDP_SIGN_RESPONSE"`

	// SPEntityID and SPACSURL describe the relying service provider.
	SPEntityID string `mapstructure:"SP_ENTITY_ID"`
	SPACSURL   string `mapstructure:"SP_ACS_URL"`
	// SPLoginURL receives the signed token redirect when a login arrives
	// without a SAML request.
	SPLoginURL string `mapstructure:"SP_LOGIN_URL"`
	// CompanyID is wrapped into the default RelayState JSON.
	CompanyID string `mapstructure:"COMPANY_ID"`

	// SessionSecret signs fallback login tokens and has no other use.
	SessionSecret string `mapstructure:"SESSION_SECRET"`

	// Certificate subject fields and output location.
	CertCountry   string `mapstructure:"CERT_COUNTRY"`
	CertState     string `mapstructure:"CERT_STATE"`
	CertLocality  string `mapstructure:"CERT_LOCALITY"`
	CertOrg       string `mapstructure:"CERT_ORGANIZATION"`
	CertOrgUnit   string `mapstructure:"CERT_ORG_UNIT"`
	CertCommon    string `mapstructure:"CERT_COMMON_NAME"`
	CertEmail     string `mapstructure:"CERT_EMAIL"`
	CertOutputDir string `mapstructure:"CERT_OUTPUT_DIR"`

	// SCIMRemoteBaseURL and SCIMRemoteAPIKey locate the remote SCIM
	// service the directory is mirrored into.
	SCIMRemoteBaseURL string `mapstructure:"SCIM_REMOTE_BASE_URL"`
	SCIMRemoteAPIKey  string `mapstructure:"SCIM_REMOTE_API_KEY"`
	// SCIMTimeout bounds each remote SCIM call.
	SCIMTimeout time.Duration `mapstructure:"SCIM_TIMEOUT"`
	// SCIMToken is the bearer token required by the served SCIM endpoints.
	SCIMToken string `mapstructure:"SCIM_TOKEN"`
}

// Load reads .env (if present), then builds Config from the environment.
// Missing .env is ignored; env vars override .env values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("ADDR", ":3000")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("IDP_ENTITY_ID", "urn:mock:idp")
	v.SetDefault("IDP_LOGIN_URL", "")
	v.SetDefault("IDP_LOGOUT_URL", "")
	v.SetDefault("IDP_SIGN_RESPONSE", true)
	v.SetDefault("SP_ENTITY_ID", "urn:example:sp")
	v.SetDefault("SP_ACS_URL", "https://sp.example.com/saml/acs")
	v.SetDefault("SP_LOGIN_URL", "https://sp.example.com/saml/redirect")
	v.SetDefault("COMPANY_ID", "your-company-id")
	v.SetDefault("SESSION_SECRET", "your-secret-key")
	v.SetDefault("CERT_COUNTRY", "ID")
	v.SetDefault("CERT_STATE", "Banten")
	v.SetDefault("CERT_LOCALITY", "Kabupaten Tangerang")
	v.SetDefault("CERT_ORGANIZATION", "YourCompany")
	v.SetDefault("CERT_ORG_UNIT", "YourDepartment")
	v.SetDefault("CERT_COMMON_NAME", "localhost")
	v.SetDefault("CERT_EMAIL", "")
	v.SetDefault("CERT_OUTPUT_DIR", "./certs-data")
	v.SetDefault("SCIM_REMOTE_BASE_URL", "")
	v.SetDefault("SCIM_REMOTE_API_KEY", "")
	v.SetDefault("SCIM_TIMEOUT", "15s")
	v.SetDefault("SCIM_TOKEN", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.IDPLoginURL == "" {
		cfg.IDPLoginURL = base + "/saml/login"
	}
	if cfg.IDPLogoutURL == "" {
		cfg.IDPLogoutURL = base + "/saml/logout"
	}

	return &cfg, nil
}

// CertConfig returns the certificate store configuration.
func (c *Config) CertConfig() certs.Config {
	return certs.Config{
		Country:            c.CertCountry,
		State:              c.CertState,
		Locality:           c.CertLocality,
		Organization:       c.CertOrg,
		OrganizationalUnit: c.CertOrgUnit,
		CommonName:         c.CertCommon,
		Email:              c.CertEmail,
		OutputDir:          c.CertOutputDir,
	}
}
