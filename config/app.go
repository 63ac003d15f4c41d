package config

import "time"

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	StripeAPIKey     string `env:"STRIPE_API_KEY,required"`
	StripeSuccessURL string `env:"STRIPE_SUCCESS_URL" default:"http://localhost:8080/api/payments/success"`
	StripeCancelURL  string `env:"STRIPE_CANCEL_URL" default:"http://localhost:8080/api/payments/cancel"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`
	OverdueScanInterval  time.Duration `env:"OVERDUE_SCAN_INTERVAL" default:"24h"`
}
