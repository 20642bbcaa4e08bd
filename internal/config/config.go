package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort         string
	AppBaseURL      string
	DBDriver        string
	DBDSN           string
	JWTSecret       string
	JWTExpiresMin   int
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	CORSOrigins     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UploadDir string
	CartStore string // remote | session

	LogLevel string
	LogDev   bool

	Checkout Checkout
	Chat     Chat
}

// Checkout holds the fixed pricing constants used for cart totals.
type Checkout struct {
	FreeShippingThreshold int64
	ShippingFee           int64
	TaxRate               float64
}

// Chat holds the timings of the simulated counterpart.
type Chat struct {
	ReplyDelay        time.Duration
	UploadDelay       time.Duration
	MaxAttachmentSize int64
	MaxAvatarSize     int64
}

func DefaultCheckout() Checkout {
	return Checkout{
		FreeShippingThreshold: 5000,
		ShippingFee:           150,
		TaxRate:               0.05,
	}
}

func DefaultChat() Chat {
	return Chat{
		ReplyDelay:        2 * time.Second,
		UploadDelay:       1500 * time.Millisecond,
		MaxAttachmentSize: 5 << 20,
		MaxAvatarSize:     2 << 20,
	}
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	logDev, _ := strconv.ParseBool(get("LOG_DEV", "false"))

	driver := strings.ToLower(get("DB_DRIVER", "postgres"))
	dsn := get("DB_DSN", "")
	if driver == "postgres" {
		dsn = must("DB_DSN")
	}

	return Config{
		AppPort:         get("APP_PORT", "8080"),
		AppBaseURL:      get("APP_BASE_URL", ""),
		DBDriver:        driver,
		DBDSN:           dsn,
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   expires,
		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		RedisAddr:       get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		RedisDB:         redisDB,
		UploadDir:       get("UPLOAD_DIR", "./uploads"),
		CartStore:       strings.ToLower(get("CART_STORE", "remote")),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogDev:          logDev,
		Checkout:        DefaultCheckout(),
		Chat:            DefaultChat(),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
