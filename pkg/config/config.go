package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBUrl              string
	GoogleClientID     string
	GoogleClientSecret string
	JWTSecret          string
	RedisURL           string
	RedisPassword      string
	Port               string
	Host               string
	Env                string
	AllowedOrigins     []string
	AdminEmails        []string
	Currency           string

	MinDepositAmount          decimal.Decimal
	MinWithdrawalAmount       decimal.Decimal
	MaxTransactionAmount      decimal.Decimal
	WelcomeBonus              decimal.Decimal
	ReferralCommissionPercent decimal.Decimal

	TxMaxRetries  int
	MaxActiveKeys int
}

func LoadConfig() Config {
	godotenv.Load()

	return Config{
		DBUrl:              getEnv("DATABASE_URL"),
		GoogleClientID:     getEnvDefault("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnvDefault("GOOGLE_CLIENT_SECRET", ""),
		JWTSecret:          getEnv("JWT_SECRET"),
		RedisURL:           getEnv("REDIS_URL"),
		RedisPassword:      getEnvDefault("REDIS_PASSWORD", ""),
		Port:               getEnvDefault("PORT", "8080"),
		Host:               getEnvDefault("HOST", "http://localhost:8080"),
		Env:                getEnvDefault("ENV", "development"),
		AllowedOrigins:     splitList(getEnvDefault("ALLOWED_ORIGINS", "*")),
		AdminEmails:        splitList(strings.ToLower(getEnvDefault("ADMIN_EMAILS", ""))),
		Currency:           getEnvDefault("CURRENCY", "PKR"),

		MinDepositAmount:          getDecimal("MIN_DEPOSIT_AMOUNT", "100"),
		MinWithdrawalAmount:       getDecimal("MIN_WITHDRAWAL_AMOUNT", "100"),
		MaxTransactionAmount:      getDecimal("MAX_TRANSACTION_AMOUNT", "1000000"),
		WelcomeBonus:              getDecimal("WELCOME_BONUS", "0"),
		ReferralCommissionPercent: getDecimal("REFERRAL_COMMISSION_PERCENT", "0"),

		TxMaxRetries:  getInt("TX_MAX_RETRIES", 3),
		MaxActiveKeys: getInt("MAX_ACTIVE_KEYS", 5),
	}
}

// IsAdminEmail reports whether email is bootstrapped as an administrator.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func getEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	panic(fmt.Sprintf("%s is required", key))
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDecimal(key, fallback string) decimal.Decimal {
	raw := getEnvDefault(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		panic(fmt.Sprintf("%s must be a non-negative number", key))
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		panic(fmt.Sprintf("%s must be a positive integer", key))
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
