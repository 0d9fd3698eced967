package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	BusinessConfigPath string

	GeminiAPIKey  string
	GeminiModelID string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string
	PaymentWindow       time.Duration

	GoogleCalendarID          string
	GoogleServiceAccountPath  string
	WhatsAppAccessToken       string
	WhatsAppPhoneNumberID     string
	WhatsAppVerifyToken       string
	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioFromNumber          string
	SendGridAPIKey            string
	HandoffAlertEmail         string
	HandoffAlertFromEmail     string
	ReminderSweepInterval     time.Duration
	ReminderFirstWindow       time.Duration
	ReminderSecondWindow      time.Duration
	TurnLockTTL               time.Duration
	TurnLockRetryInterval     time.Duration
	TurnLockAcquisitionBudget time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BusinessConfigPath: getEnv("BUSINESS_CONFIG_PATH", "business_config.json"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", ""),
		PaymentWindow:       getEnvAsDuration("PAYMENT_WINDOW", 15*time.Minute),

		GoogleCalendarID:         getEnv("GOOGLE_CALENDAR_ID", ""),
		GoogleServiceAccountPath: getEnv("GOOGLE_SERVICE_ACCOUNT_PATH", ""),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:      getEnv("TWILIO_FROM_NUMBER", ""),

		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		HandoffAlertEmail:     getEnv("HANDOFF_ALERT_EMAIL", ""),
		HandoffAlertFromEmail: getEnv("HANDOFF_ALERT_FROM_EMAIL", "concierge@glowdesk.app"),

		ReminderSweepInterval: getEnvAsDuration("REMINDER_SWEEP_INTERVAL", time.Minute),
		ReminderFirstWindow:   getEnvAsDuration("REMINDER_FIRST_WINDOW", 24*time.Hour),
		ReminderSecondWindow:  getEnvAsDuration("REMINDER_SECOND_WINDOW", 2*time.Hour),

		TurnLockTTL:               getEnvAsDuration("TURN_LOCK_TTL", 30*time.Second),
		TurnLockRetryInterval:     getEnvAsDuration("TURN_LOCK_RETRY_INTERVAL", 100*time.Millisecond),
		TurnLockAcquisitionBudget: getEnvAsDuration("TURN_LOCK_ACQUISITION_BUDGET", 2*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
