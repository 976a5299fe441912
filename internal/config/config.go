// Package config loads the JSON configuration file and overlays environment
// variables on it.
package config

import (
	"domainwatch/pkg/domain"
	"domainwatch/pkg/serrors"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// DefaultAccountName names accounts configured without a name.
	DefaultAccountName = "Default"
	// DefaultPrimaryAccount is the account whose domains are authoritative.
	DefaultPrimaryAccount = "SK"
	// DefaultAPIURL is the registrar domains endpoint.
	DefaultAPIURL = "https://api.godaddy.com/v1/domains"
)

// ErrNoAccounts is returned when neither the file nor the environment
// configures a registrar account with both key and secret.
var ErrNoAccounts = serrors.With(serrors.ErrConfig,
	"no registrar accounts configured, check the config file or the GODADDY_API_KEY and GODADDY_API_SECRET variables")

// Duration is a time.Duration read from strings like "2s" in JSON and in
// environment variables. Plain JSON numbers are taken as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var seconds float64
	if err := json.Unmarshal(b, &seconds); err == nil {
		*d = Duration(seconds * float64(time.Second))

		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid duration %s: %w", b, err)
	}

	return d.SetValue(s)
}

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)

	return nil
}

// Account is one entry of the accounts list.
type Account struct {
	Name      string `json:"name"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	// APIURL overrides godaddy.api_url for this account.
	APIURL string `json:"api_url"`
	// RequestsPerMinute overrides godaddy.rate_limit.requests_per_minute for this account.
	RequestsPerMinute int `json:"requests_per_minute"`
}

// SpecialDomain is a manual expiry for a domain WHOIS does not answer for.
type SpecialDomain struct {
	ExpiryDate string `json:"expiry_date"`
	Registrar  string `json:"registrar"`
}

// Config represents the application configuration structure.
type Config struct {
	// Environment selects the log format (development or production).
	Environment string `env:"ENVIRONMENT" env-default:"development" json:"environment"`

	// Accounts are the registrar credential sets.
	Accounts []Account `json:"accounts"`

	// EnvAccount is the account taken from the environment when Accounts has
	// no usable entry.
	EnvAccount struct {
		APIKey    string `env:"GODADDY_API_KEY"`
		APISecret string `env:"GODADDY_API_SECRET"`
		Name      string `env:"GODADDY_ACCOUNT_NAME" env-default:"Default"`
	} `json:"-"`

	// GoDaddy holds the settings shared by all accounts.
	GoDaddy struct {
		// APIURL is the domains endpoint.
		APIURL string `env:"GODADDY_API_URL" json:"api_url"`
		// PageSize is the listing page size.
		PageSize int `env:"GODADDY_PAGE_SIZE" env-default:"100" json:"page_size"`
		// Timeout bounds the listing request.
		Timeout Duration `env:"GODADDY_TIMEOUT" env-default:"30s" json:"timeout"`
		RateLimit struct {
			// RequestsPerMinute is the budget of each account's 60 second window.
			RequestsPerMinute int `env:"GODADDY_REQUESTS_PER_MINUTE" env-default:"60" json:"requests_per_minute"`
			// DomainLimits maps an API category to the domain count it requires.
			DomainLimits map[string]int `json:"domain_limits"`
		} `json:"rate_limit"`
	} `json:"godaddy"`

	// Domains are checked via WHOIS unless the primary account already returned them.
	Domains []string `json:"domains"`

	SpecialDomains struct {
		AI map[string]SpecialDomain `json:"ai"`
	} `json:"special_domains"`

	EmailAlert struct {
		Recipients []string `json:"recipients"`
		SMTP       struct {
			Host     string `env:"SMTP_HOST" json:"host"`
			Port     int    `env:"SMTP_PORT" env-default:"587" json:"port"`
			Username string `env:"SMTP_USERNAME" json:"username"`
			Password string `env:"SMTP_PASSWORD" json:"password"`
			UseTLS   bool   `env:"SMTP_USE_TLS" json:"use_tls"`
		} `json:"smtp"`
		// Whitelist lists domains that never trigger an alert.
		Whitelist []string `json:"whitelist"`
		// AlertThreshold is the days-until-expiry at or below which a domain alerts.
		AlertThreshold int `env:"ALERT_THRESHOLD" env-default:"60" json:"alert_threshold"`
	} `json:"email_alert"`

	Whois struct {
		MaxAttempts int      `env:"WHOIS_MAX_ATTEMPTS" env-default:"3" json:"max_attempts"`
		RetryDelay  Duration `env:"WHOIS_RETRY_DELAY" env-default:"2s" json:"retry_delay"`
		Timeout     Duration `env:"WHOIS_TIMEOUT" env-default:"10s" json:"timeout"`
	} `json:"whois"`

	Monitor struct {
		// PrimaryAccount names the authoritative account, "*" polls all of them.
		PrimaryAccount string `env:"PRIMARY_ACCOUNT" env-default:"SK" json:"primary_account"`
	} `json:"monitor"`

	Metrics struct {
		// PushgatewayURL enables pushing the run's metrics when set.
		PushgatewayURL string `env:"PUSHGATEWAY_URL" json:"pushgateway_url"`
		Job            string `env:"METRICS_JOB" env-default:"domainwatch" json:"job"`
	} `json:"metrics"`
}

// Load receives the path for the JSON config file and returns a filled Config
// struct. A missing or unreadable file is not an error: the configuration is
// then read from the environment alone. ErrNoAccounts is returned when no
// account can be configured at all; the Config is still returned with it for
// commands that do not talk to the registrar.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		// the logger is not configured before the config is loaded
		log.Printf("could not read config file %s, using environment only: %v", configPath, err)

		cfg = Config{}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("could not read config from environment: %w", err)
		}
	}

	if len(cfg.RegistrarAccounts()) == 0 {
		return &cfg, ErrNoAccounts
	}

	return &cfg, nil
}

// RegistrarAccounts returns the usable file accounts, or the environment account when
// there is none. Entries without key or secret are skipped.
func (c *Config) RegistrarAccounts() []domain.Account {
	var accounts []domain.Account
	for _, a := range c.Accounts {
		if acc, ok := c.account(a); ok {
			accounts = append(accounts, acc)
		}
	}
	if len(accounts) > 0 {
		return accounts
	}

	if acc, ok := c.account(Account{
		Name:      c.EnvAccount.Name,
		APIKey:    c.EnvAccount.APIKey,
		APISecret: c.EnvAccount.APISecret,
	}); ok {
		accounts = append(accounts, acc)
	}

	return accounts
}

func (c *Config) account(a Account) (domain.Account, bool) {
	key := strings.TrimSpace(a.APIKey)
	secret := strings.TrimSpace(a.APISecret)
	if key == "" || secret == "" {
		return domain.Account{}, false
	}

	name := a.Name
	if name == "" {
		name = DefaultAccountName
	}
	apiURL := a.APIURL
	if apiURL == "" {
		apiURL = c.GoDaddy.APIURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	rpm := a.RequestsPerMinute
	if rpm <= 0 {
		rpm = c.GoDaddy.RateLimit.RequestsPerMinute
	}

	return domain.Account{
		Name:              name,
		APIKey:            key,
		APISecret:         secret,
		APIURL:            apiURL,
		PageSize:          c.GoDaddy.PageSize,
		RequestsPerMinute: rpm,
		DomainLimits:      c.GoDaddy.RateLimit.DomainLimits,
	}, true
}
