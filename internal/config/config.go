// Package config loads the verifytoken CLI configuration from flags,
// environment variables (VERIFYTOKEN_*) and an optional verifytoken.yaml.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sessionkit/verifytoken"
	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/jwks"
	"github.com/sessionkit/verifytoken/options"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "VERIFYTOKEN"

// Config holds the CLI configuration.
type Config struct {
	SecretKey         string        `mapstructure:"secret_key" secret:"true" validate:"required_without=JWTKey"`
	JWTKey            string        `mapstructure:"jwt_key" secret:"true" validate:"required_without=SecretKey"`
	Audience          string        `mapstructure:"audience"`
	AuthorizedParties []string      `mapstructure:"authorized_parties" validate:"dive,required"`
	ClockSkewMs       int64         `mapstructure:"clock_skew_ms" default:"5000" validate:"gte=0"`
	APIURL            string        `mapstructure:"api_url" default:"https://api.clerk.com" validate:"required,http_url"`
	APIVersion        string        `mapstructure:"api_version" default:"v1" validate:"required"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout" default:"5s" validate:"gt=0"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" default:"1h" validate:"gt=0"`
	RedisURL          string        `mapstructure:"redis_url" secret:"true" validate:"omitempty,url"`

	// Logging
	LogLevel  string `mapstructure:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	LogFormat string `mapstructure:"log_format" default:"text" validate:"oneof=text json"`
}

// Load builds a Config. Precedence, highest first: flags that were set,
// environment variables, the config file, struct defaults. configFile may
// be empty, in which case verifytoken.yaml is looked up in the working
// directory and ./config; a missing file is not an error.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set struct defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("verifytoken")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	defaultValues := reflect.ValueOf(cfg)
	t := defaultValues.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		v.SetDefault(key, defaultValues.Field(i).Interface())
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// VerifyOptions converts the configuration into verify options.
func (c *Config) VerifyOptions() (*options.VerifyTokenOptions, error) {
	opt := func(s string) *options.Optional[string] {
		if s == "" {
			return options.None[string]().Ptr()
		}
		return options.Some(s).Ptr()
	}

	return options.New(options.Params{
		SecretKey:         opt(c.SecretKey),
		JWTKey:            opt(c.JWTKey),
		Audience:          opt(c.Audience),
		AuthorizedParties: c.AuthorizedParties,
		ClockSkewMs:       options.Some(c.ClockSkewMs).Ptr(),
		APIURL:            opt(c.APIURL),
		APIVersion:        opt(c.APIVersion),
	})
}

// KeyCache returns a Redis cache when RedisURL is set and an in-process
// cache otherwise.
func (c *Config) KeyCache() (jwks.KeyCache, error) {
	if c.RedisURL != "" {
		return jwks.NewRedisCacheFromURL(c.RedisURL, jwks.WithRedisTTL(c.CacheTTL))
	}
	return jwks.NewMemoryCache(jwks.WithTTL(c.CacheTTL)), nil
}

// Logger returns a logrus-backed logger honouring LogLevel and LogFormat.
func (c *Config) Logger() core.Logger {
	l := logrus.New()
	switch c.LogLevel {
	case "DEBUG":
		l.SetLevel(logrus.DebugLevel)
	case "WARN":
		l.SetLevel(logrus.WarnLevel)
	case "ERROR":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return verifytoken.NewLogrusLogger(l)
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprintf("%v", v.Field(i).Interface())
		if field.Tag.Get("secret") == "true" && value != "" {
			value = "***REDACTED***"
		}
		sb.WriteString(field.Name + ": " + value)
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
