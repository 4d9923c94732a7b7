// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Verification VerificationConfig `mapstructure:"verification"`
	Wizard       WizardConfig       `mapstructure:"wizard"`
	Search       SearchConfig       `mapstructure:"search"`
	Integrations IntegrationConfig  `mapstructure:"integrations"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Flows        FlowsConfig        `mapstructure:"flows"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	Index      string   `mapstructure:"index"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds token issuance settings. The identity provider itself is
// an external collaborator; only id, email and the user_metadata bag of its
// user object are interpreted here.
type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	TokenTTL       int    `mapstructure:"token_ttl"` // minutes
	Issuer         string `mapstructure:"issuer"`
	MinPasswordLen int    `mapstructure:"min_password_len"`
}

// VerificationConfig controls code generation and delivery.
type VerificationConfig struct {
	CodeLength int  `mapstructure:"code_length"`
	CodeTTL    int  `mapstructure:"code_ttl"` // seconds
	ResendGap  int  `mapstructure:"resend_gap"`
	// DebugAcceptAny preserves the demo behavior: any well-formed code
	// verifies. Off by default.
	DebugAcceptAny bool `mapstructure:"debug_accept_any"`
}

// WizardConfig holds session lifetime settings for all flows.
type WizardConfig struct {
	SessionTTL int `mapstructure:"session_ttl"` // seconds
}

// SearchConfig holds filter pipeline defaults.
type SearchConfig struct {
	DefaultMaxPrice int `mapstructure:"default_max_price"`
}

// IntegrationConfig holds settings for AWS delivery channels.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// FlowsConfig points at the wizard flow registry.
type FlowsConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}
