package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds the app-wide configuration; loaded once on startup.
var Conf *Config

type (
	Config struct {
		Debug                bool
		TestMode             bool
		Env                  string // DEV (local; default), TEST, QA, PROD
		Build                string
		AppName              string
		SecretKey            []byte
		FrontendBaseURL      string
		SendgridApiKey       string
		RollbarToken         string
		DefaultFromEmailAddr string

		Server   ServerConfig
		Database DatabaseConfig
		Stripe   StripeConfig
		Quiz     QuizConfig

		PasswordResetTimeoutDelta time.Duration
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StripeConfig struct {
		SecretKey     string
		WebhookSecret string
		Currency      string
		SuccessURL    string
		CancelURL     string
	}

	QuizConfig struct {
		MockTestQuestionCount int
		MockTestDuration      time.Duration
		MockTestPassMark      int
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmailAddr}
}

// LoadConfig builds the app Config from defaults, an optional per-ENV
// .env file and environment variables.
func LoadConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "RoadMaster")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "h4rd-sh0ulder_n0t-f0r-pr0d-(replace-me)")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("shutdownTimeout", 20*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "roadmaster")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "roadmaster")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("stripeSecretKey", "")
	v.SetDefault("stripeWebhookSecret", "")
	v.SetDefault("stripeCurrency", "gbp")
	v.SetDefault("stripeSuccessURL", "http://localhost:3000/payments/success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("stripeCancelURL", "http://localhost:3000/payments/cancelled")
	v.SetDefault("mockTestQuestionCount", 50)
	v.SetDefault("mockTestDuration", 57*time.Minute)
	v.SetDefault("mockTestPassMark", 43)

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:                v.GetBool("debug"),
		TestMode:             testMode,
		Env:                  env,
		Build:                v.GetString("build"),
		AppName:              v.GetString("appName"),
		SecretKey:            []byte(v.GetString("secretKey")),
		FrontendBaseURL:      v.GetString("frontendBaseURL"),
		SendgridApiKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		DefaultFromEmailAddr: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetString("serverPort"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripeSecretKey"),
			WebhookSecret: v.GetString("stripeWebhookSecret"),
			Currency:      v.GetString("stripeCurrency"),
			SuccessURL:    v.GetString("stripeSuccessURL"),
			CancelURL:     v.GetString("stripeCancelURL"),
		},
		Quiz: QuizConfig{
			MockTestQuestionCount: v.GetInt("mockTestQuestionCount"),
			MockTestDuration:      v.GetDuration("mockTestDuration"),
			MockTestPassMark:      v.GetInt("mockTestPassMark"),
		},
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}
}

func init() {
	Conf = LoadConfig()
}
