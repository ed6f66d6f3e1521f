package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Directory service
	TokenJSON         string `yaml:"token_json"`
	DirectoryEndpoint string `yaml:"directory_endpoint"`
	DefaultOrgUnit    string `yaml:"default_org_unit"`
	PasswordLength    int    `yaml:"password_length"`

	// Input
	RecordPath string `yaml:"record_path"`

	// SFTP record source
	SFTPHost                  string `yaml:"sftp_host"`
	SFTPPort                  int    `yaml:"sftp_port"`
	SFTPUser                  string `yaml:"sftp_user"`
	SFTPPass                  string `yaml:"sftp_pass"`
	SFTPKnownHosts            string `yaml:"sftp_known_hosts"`
	SFTPInsecureIgnoreHostKey bool   `yaml:"sftp_insecure_ignore_hostkey"`

	// Mail relay
	SMTPHost      string `yaml:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port"`
	SMTPStartTLS  bool   `yaml:"smtp_starttls"`
	SMTPUser      string `yaml:"smtp_user"`
	SMTPPass      string `yaml:"smtp_pass"`
	EmailFrom     string `yaml:"email_from"`
	EmailSubject  string `yaml:"email_subject"`
	EmailTemplate string `yaml:"email_template"`
	LoginURL      string `yaml:"login_url"`

	// Runtime
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`
	RunTimeoutSec  int    `yaml:"run_timeout_sec"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
}

func defaults() Config {
	return Config{
		PasswordLength: 20,
		SFTPPort:       22,
		SMTPHost:       "smtp.gmail.com",
		SMTPPort:       465,
		EmailSubject:   "Your New Google Workspace Account Details",
		LoginURL:       "https://accounts.google.com/",
		HTTPTimeoutSec: 60,
		RunTimeoutSec:  120,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Load builds the configuration: defaults, then the optional YAML file at
// path, then .env, then the process environment.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.TokenJSON = getenv("TOKEN_JSON", cfg.TokenJSON)
	cfg.DirectoryEndpoint = getenv("DIRECTORY_ENDPOINT", cfg.DirectoryEndpoint)
	cfg.DefaultOrgUnit = getenv("DEFAULT_ORG_UNIT", cfg.DefaultOrgUnit)
	cfg.PasswordLength = getenvInt("PASSWORD_LENGTH", cfg.PasswordLength)

	cfg.RecordPath = getenv("TXT_FILE", cfg.RecordPath)

	cfg.SFTPHost = getenv("SFTP_HOST", cfg.SFTPHost)
	cfg.SFTPPort = getenvInt("SFTP_PORT", cfg.SFTPPort)
	cfg.SFTPUser = getenv("SFTP_USER", cfg.SFTPUser)
	cfg.SFTPPass = getenv("SFTP_PASS", cfg.SFTPPass)
	cfg.SFTPKnownHosts = getenv("SFTP_KNOWN_HOSTS", cfg.SFTPKnownHosts)
	cfg.SFTPInsecureIgnoreHostKey = getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", cfg.SFTPInsecureIgnoreHostKey)

	cfg.SMTPHost = getenv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getenvInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPStartTLS = getenvBool("SMTP_STARTTLS", cfg.SMTPStartTLS)
	cfg.SMTPUser = getenv("EMAIL_SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPass = getenv("EMAIL_SMTP_PASS", cfg.SMTPPass)
	cfg.EmailFrom = getenv("EMAIL_FROM", cfg.EmailFrom)
	cfg.EmailSubject = getenv("EMAIL_SUBJECT", cfg.EmailSubject)
	cfg.EmailTemplate = getenv("EMAIL_TEMPLATE", cfg.EmailTemplate)
	cfg.LoginURL = getenv("LOGIN_URL", cfg.LoginURL)

	cfg.HTTPTimeoutSec = getenvInt("HTTP_TIMEOUT_SEC", cfg.HTTPTimeoutSec)
	cfg.RunTimeoutSec = getenvInt("RUN_TIMEOUT_SEC", cfg.RunTimeoutSec)
	cfg.PushgatewayURL = getenv("PUSHGATEWAY_URL", cfg.PushgatewayURL)
	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getenv("LOG_FORMAT", cfg.LogFormat))

	if cfg.EmailFrom == "" {
		cfg.EmailFrom = cfg.SMTPUser
	}
	return cfg, nil
}

// Validate checks the settings a provisioning run cannot start without.
// Mail relay credentials are not required.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RecordPath) == "" {
		return fmt.Errorf("TXT_FILE is not set: specify the path to the user data file")
	}
	if c.PasswordLength < 12 {
		return fmt.Errorf("PASSWORD_LENGTH must be >= 12")
	}
	if c.SMTPPort <= 0 || c.SFTPPort <= 0 {
		return fmt.Errorf("invalid SMTP_PORT / SFTP_PORT")
	}
	if c.HTTPTimeoutSec <= 0 || c.RunTimeoutSec <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SEC and RUN_TIMEOUT_SEC must be positive")
	}
	return nil
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSec) * time.Second
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
