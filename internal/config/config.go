package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or an env-file loaded in main).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Shuttle ShuttleConfig
	Twilio  TwilioConfig
	Link    LinkConfig
	DB      DBConfig
	Redis   RedisConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// ShuttleConfig identifies the payment gateway and the shared (public) keys
// used by the hosted checkout widget on the link landing page.
type ShuttleConfig struct {
	APIHost string

	// Shared keys are public identifiers, not secrets. Sandbox instances are
	// recognised by the "T_" instance-id prefix.
	SandboxSharedKey string
	LiveSharedKey    string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	// SMSFrom is the number payment links are sent from. If empty, the
	// dialled number of the current call is used instead.
	SMSFrom string
}

// LinkConfig controls self-hosted payment links. When PublicBaseURL and
// Secret are both set, SMS links point at this app's landing page with a
// signed, expiring token; otherwise links use the gateway-hosted page.
type LinkConfig struct {
	PublicBaseURL string
	Secret        string
	TTL           time.Duration
}

// DBConfig is optional; the call audit trail persists to Postgres only when
// DB_HOST is set.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional; the gateway lookup cache is enabled only when
// REDIS_HOST is set.
type RedisConfig struct {
	Host string
	Port int
}

const (
	defaultAPIHost          = "https://twilio.shuttleglobal.com"
	defaultSandboxSharedKey = "1186_681287"
	defaultLiveSharedKey    = "1186_681286"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Shuttle.APIHost = strings.TrimSpace(os.Getenv("SHUTTLE_API_URL"))
	c.Shuttle.SandboxSharedKey = strings.TrimSpace(os.Getenv("SHUTTLE_SANDBOX_SHARED_KEY"))
	c.Shuttle.LiveSharedKey = strings.TrimSpace(os.Getenv("SHUTTLE_LIVE_SHARED_KEY"))

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_TOKEN")
	c.Twilio.SMSFrom = strings.TrimSpace(os.Getenv("TWILIO_SMS_FROM"))

	c.Link.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("LINK_PUBLIC_BASE_URL")), "/")
	c.Link.Secret = os.Getenv("LINK_SECRET")
	c.Link.TTL = optDuration("LINK_TTL")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
		c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
		c.DB.Password = os.Getenv("DB_PASSWORD")
		c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
		c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Shuttle.APIHost == "" {
		c.Shuttle.APIHost = defaultAPIHost
	}
	if c.Shuttle.SandboxSharedKey == "" {
		c.Shuttle.SandboxSharedKey = defaultSandboxSharedKey
	}
	if c.Shuttle.LiveSharedKey == "" {
		c.Shuttle.LiveSharedKey = defaultLiveSharedKey
	}
	if c.Link.TTL <= 0 {
		c.Link.TTL = 30 * time.Minute
	}
	if c.DB.Host != "" && c.DB.SSLMode == "" && !c.IsProduction() {
		c.DB.SSLMode = "disable"
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if (c.Twilio.AccountSID == "") != (c.Twilio.AuthToken == "") {
		errs = append(errs, errors.New("TWILIO_SID and TWILIO_TOKEN must be set together"))
	}

	if (c.Link.PublicBaseURL == "") != (c.Link.Secret == "") {
		errs = append(errs, errors.New("LINK_PUBLIC_BASE_URL and LINK_SECRET must be set together"))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" && c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// SharedKey selects the hosted checkout public key for an instance.
// Sandbox instance ids carry a "T_" prefix by gateway convention.
func (c Config) SharedKey(instanceID string) string {
	if strings.HasPrefix(instanceID, "T_") {
		return c.Shuttle.SandboxSharedKey
	}
	return c.Shuttle.LiveSharedKey
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
