// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package config defines the gateway configuration and its layered loader.
//
// Precedence: environment variables > YAML config file > built-in defaults.
// Environment variables use the VERILOC_ prefix with underscores for nesting,
// e.g. VERILOC_ORACLE_WINDOW -> oracle.window.
package config

import "time"

// Config is the root configuration for the gateway.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Security     SecurityConfig     `koanf:"security"`
	Identity     IdentityConfig     `koanf:"identity"`
	Oracle       OracleConfig       `koanf:"oracle"`
	Verification VerificationConfig `koanf:"verification"`
	Admission    AdmissionConfig    `koanf:"admission"`
	Accounting   AccountingConfig   `koanf:"accounting"`
	Anonymizer   AnonymizerConfig   `koanf:"anonymizer"`
	Anonengine   AnonengineConfig   `koanf:"anonengine"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config for koanf unmarshaling.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds inbound request authorization settings.
//
// Feed clients present Keycloak-issued bearer tokens; the gateway verifies
// the HMAC signature and requires a realm role per route group.
type SecurityConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=32"`
	// Issuer, when set, is enforced against the token's iss claim.
	Issuer string `koanf:"issuer"`
}

// IdentityConfig holds the identity-provider (Keycloak) settings used to
// obtain bearer tokens for the verification oracle.
type IdentityConfig struct {
	TokenURL     string `koanf:"token_url" validate:"required,url"`
	ClientID     string `koanf:"client_id" validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`
	Username     string `koanf:"username" validate:"required"`
	Password     string `koanf:"password" validate:"required"`
	GrantType    string `koanf:"grant_type"`
	// TokenStaleness is how long a fetched token is served from cache
	// before a refresh is triggered.
	TokenStaleness time.Duration `koanf:"token_staleness" validate:"gt=0"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
}

// RegionConfig binds a named region to its oracle endpoint base and the
// reference coordinate used by the nearest-region classifier.
type RegionConfig struct {
	Name      string  `koanf:"name" validate:"required"`
	BaseURL   string  `koanf:"base_url" validate:"required,url"`
	Latitude  float64 `koanf:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `koanf:"longitude" validate:"gte=-180,lte=180"`
}

// OracleConfig holds the verification-oracle client settings.
type OracleConfig struct {
	// Regions lists the configured oracle deployments; every position is
	// dispatched to exactly one of them.
	Regions []RegionConfig `koanf:"regions" validate:"required,min=1,dive"`
	// GalileoURI and MessageURI are the per-deployment resource paths for
	// user-trip (Galileo) and IoT (raw uBlox) lookups.
	GalileoURI string `koanf:"galileo_uri" validate:"required"`
	MessageURI string `koanf:"message_uri" validate:"required"`
	// Window and WindowStep define the reconciliation search range
	// [t-window, t+window] stepped by window_step, in milliseconds.
	Window     int64         `koanf:"window" validate:"gt=0"`
	WindowStep int64         `koanf:"window_step" validate:"gt=0"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	// RequestsPerSecond caps the client-side request rate toward each
	// oracle deployment; 0 disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
}

// VerificationConfig holds the reconciliation-engine tunables.
type VerificationConfig struct {
	// MeaconingThreshold is the maximum tolerated clock-drift rate
	// (delta fullbiasnano / delta timenano) between consecutive
	// auth-bearing trip positions.
	MeaconingThreshold float64 `koanf:"meaconing_threshold" validate:"gt=0"`
}

// AdmissionConfig sizes the fixed-capacity admission gates.
type AdmissionConfig struct {
	UserStore int `koanf:"user_store" validate:"gte=1"`
	UserTest  int `koanf:"user_test" validate:"gte=1"`
	IoTStore  int `koanf:"iot_store" validate:"gte=1"`
	IoTTest   int `koanf:"iot_test" validate:"gte=1"`
	// Auth caps concurrent oracle-verification pipelines across all feeds.
	Auth int `koanf:"auth" validate:"gte=1"`
	// ProbeWait bounds how long a submission waits for a gate slot before
	// being told to retry later.
	ProbeWait time.Duration `koanf:"probe_wait" validate:"gt=0"`
}

// AccountingConfig holds the accounting (audit) sink settings.
type AccountingConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	URI     string        `koanf:"uri" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// AnonymizerConfig holds the anonymized-data store settings.
type AnonymizerConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	StoreUserURI string        `koanf:"store_user_uri" validate:"required"`
	StoreIoTURI  string        `koanf:"store_iot_uri" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

// AnonengineConfig holds the legacy anonymizer settings (trip storage plus
// mobility/details extraction).
type AnonengineConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	StoreURI    string        `koanf:"store_uri" validate:"required"`
	MobilityURI string        `koanf:"mobility_uri" validate:"required"`
	DetailsURI  string        `koanf:"details_uri" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Security: SecurityConfig{
			JWTSecret: "",
			Issuer:    "",
		},
		Identity: IdentityConfig{
			TokenURL:       "",
			ClientID:       "",
			ClientSecret:   "",
			Username:       "",
			Password:       "",
			GrantType:      "password",
			TokenStaleness: 150 * time.Second,
			Timeout:        10 * time.Second,
		},
		Oracle: OracleConfig{
			Regions:           []RegionConfig{},
			GalileoURI:        "/api/v1/galileo/message",
			MessageURI:        "/api/v1/ublox/message",
			Window:            30000,
			WindowStep:        2000,
			Timeout:           25 * time.Second,
			RequestsPerSecond: 0,
		},
		Verification: VerificationConfig{
			MeaconingThreshold: 0.1,
		},
		Admission: AdmissionConfig{
			UserStore: 40,
			UserTest:  2,
			IoTStore:  10,
			IoTTest:   5,
			Auth:      20,
			ProbeWait: 1500 * time.Millisecond,
		},
		Accounting: AccountingConfig{
			BaseURL: "",
			URI:     "/accounting",
			Timeout: time.Second,
		},
		Anonymizer: AnonymizerConfig{
			BaseURL:      "",
			StoreUserURI: "/store/user",
			StoreIoTURI:  "/store/iot",
			Timeout:      5 * time.Second,
		},
		Anonengine: AnonengineConfig{
			BaseURL:     "",
			StoreURI:    "/store",
			MobilityURI: "/mobility",
			DetailsURI:  "/details",
			Timeout:     6 * time.Second,
		},
	}
}
