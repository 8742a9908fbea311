package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all portal and sandbox configuration
type Config struct {
	Env      string
	Debug    bool
	Server   ServerConfig
	Auth     AuthConfig
	Bidding  BiddingConfig
	Upstream UpstreamConfig
	Sandbox  SandboxConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// AuthConfig holds token and session settings
type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	SweepSpec    string
	DemoAccounts []DemoAccount
}

// DemoAccount is a login registered at startup outside production
type DemoAccount struct {
	Username  string
	Password  string
	SubjectID int64
	Role      string
}

// BiddingConfig holds bid view settings
type BiddingConfig struct {
	PendingBidTTL time.Duration
}

// UpstreamConfig holds the base URLs of the backend services
type UpstreamConfig struct {
	Timeout         time.Duration
	InnovatorURL    string
	InnovationURL   string
	BiddingURL      string
	InvestorURL     string
	PaymentURL      string
	SuccessStoryURL string
}

// SandboxConfig holds settings for the local backend stand-in
type SandboxConfig struct {
	Port        string
	DBPath      string
	FailureRate float64
	MinLatency  time.Duration
	MaxLatency  time.Duration
}

const defaultDemoAccounts = "investor:investor:6634104:investor,innovator:innovator:1:innovator"

// Load reads configuration from the environment, after loading a .env file
// if one is present
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:   v.GetString("ENV"),
		Debug: v.GetBool("DEBUG"),
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			SessionTTL: v.GetDuration("SESSION_TTL"),
			SweepSpec:  v.GetString("SESSION_SWEEP_SPEC"),
		},
		Bidding: BiddingConfig{
			PendingBidTTL: v.GetDuration("PENDING_BID_TTL"),
		},
		Upstream: UpstreamConfig{
			Timeout:         v.GetDuration("UPSTREAM_TIMEOUT"),
			InnovatorURL:    strings.TrimRight(v.GetString("INNOVATOR_API_URL"), "/"),
			InnovationURL:   strings.TrimRight(v.GetString("INNOVATION_API_URL"), "/"),
			BiddingURL:      strings.TrimRight(v.GetString("BIDDING_API_URL"), "/"),
			InvestorURL:     strings.TrimRight(v.GetString("INVESTOR_API_URL"), "/"),
			PaymentURL:      strings.TrimRight(v.GetString("PAYMENT_API_URL"), "/"),
			SuccessStoryURL: strings.TrimRight(v.GetString("SUCCESS_STORY_API_URL"), "/"),
		},
		Sandbox: SandboxConfig{
			Port:        v.GetString("SANDBOX_PORT"),
			DBPath:      v.GetString("SANDBOX_DB"),
			FailureRate: v.GetFloat64("SANDBOX_FAILURE_RATE"),
			MinLatency:  v.GetDuration("SANDBOX_MIN_LATENCY"),
			MaxLatency:  v.GetDuration("SANDBOX_MAX_LATENCY"),
		},
	}

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "innovest-dev-secret"
	}

	if !cfg.IsProduction() {
		accounts, err := ParseDemoAccounts(v.GetString("DEMO_ACCOUNTS"))
		if err != nil {
			return nil, fmt.Errorf("invalid DEMO_ACCOUNTS: %w", err)
		}
		cfg.Auth.DemoAccounts = accounts
	}

	if cfg.Sandbox.FailureRate < 0 || cfg.Sandbox.FailureRate > 1 {
		return nil, fmt.Errorf("SANDBOX_FAILURE_RATE must be between 0 and 1")
	}
	if cfg.Sandbox.MaxLatency < cfg.Sandbox.MinLatency {
		return nil, fmt.Errorf("SANDBOX_MAX_LATENCY must not be below SANDBOX_MIN_LATENCY")
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ParseDemoAccounts parses "user:pass:id:role" entries separated by commas
func ParseDemoAccounts(raw string) ([]DemoAccount, error) {
	var accounts []DemoAccount
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("entry %q: expected user:pass:id:role", entry)
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad subject id: %w", entry, err)
		}
		role := strings.ToLower(parts[3])
		if role != "investor" && role != "innovator" {
			return nil, fmt.Errorf("entry %q: unknown role %q", entry, parts[3])
		}
		accounts = append(accounts, DemoAccount{
			Username:  parts[0],
			Password:  parts[1],
			SubjectID: id,
			Role:      role,
		})
	}
	return accounts, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_SWEEP_SPEC", "@every 1m")
	v.SetDefault("PENDING_BID_TTL", "2m")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("INNOVATOR_API_URL", "http://localhost:5001")
	v.SetDefault("INNOVATION_API_URL", "http://localhost:5002")
	v.SetDefault("PAYMENT_API_URL", "http://localhost:5003")
	v.SetDefault("BIDDING_API_URL", "http://localhost:5004")
	v.SetDefault("INVESTOR_API_URL", "http://localhost:5006")
	v.SetDefault("SUCCESS_STORY_API_URL", "http://localhost:5007")
	v.SetDefault("DEMO_ACCOUNTS", defaultDemoAccounts)
	v.SetDefault("SANDBOX_PORT", "5000")
	v.SetDefault("SANDBOX_DB", "sandbox.db")
	v.SetDefault("SANDBOX_FAILURE_RATE", 0.0)
	v.SetDefault("SANDBOX_MIN_LATENCY", "0s")
	v.SetDefault("SANDBOX_MAX_LATENCY", "0s")
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
