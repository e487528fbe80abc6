// Package config loads runtime configuration from the environment and
// an optional YAML file. Environment variables win over file values,
// so credentials can stay out of files entirely.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"github.com/dcc-ufrj/alumnic/internal/directory"
	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// Config is the full runtime configuration.
type Config struct {
	// URL is the directory endpoint, e.g. ldap://localhost:9090 when
	// tunneled. Maps to LDAP_URL.
	URL string `mapstructure:"ldap_url"`
	// BindDN is the privileged service identity. Maps to LDAP_BIND_DN.
	BindDN string `mapstructure:"ldap_bind_dn"`
	// BindPassword maps to LDAP_BIND_PW. Never logged.
	BindPassword string `mapstructure:"ldap_bind_pw"`

	BaseDN  string        `default:"dc=dcc,dc=ufrj,dc=br" mapstructure:"base_dn"`
	Timeout time.Duration `default:"30s" mapstructure:"timeout"`

	Policy  directory.PasswordPolicy  `mapstructure:"policy"`
	Account directory.AccountTemplate `mapstructure:"account"`
}

// Load reads configuration from path (optional; empty means
// environment only) and the process environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env vars through Unmarshal;
	// each key has to be declared.
	for _, key := range []string{
		"ldap_url", "ldap_bind_dn", "ldap_bind_pw",
		"base_dn", "timeout",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// defaults.Set recurses into the nested policy and account
	// structs, so their tagged defaults apply here too.
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no usable zero value.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("LDAP_URL is required")
	}
	if c.BindDN == "" {
		return fmt.Errorf("LDAP_BIND_DN is required")
	}
	if c.BindPassword == "" {
		return fmt.Errorf("LDAP_BIND_PW is required")
	}
	if c.BaseDN == "" {
		return fmt.Errorf("base_dn cannot be empty")
	}
	return nil
}

// ConnectionConfig builds the LDAP layer's configuration from the
// loaded values, keeping the pool and retry defaults.
func (c *Config) ConnectionConfig() *ldapc.ConnectionConfig {
	conn := ldapc.DefaultConfig()
	conn.URLs = []string{c.URL}
	conn.BaseDN = c.BaseDN
	conn.BindDN = c.BindDN
	conn.BindPassword = c.BindPassword
	conn.Timeout = c.Timeout
	return conn
}
