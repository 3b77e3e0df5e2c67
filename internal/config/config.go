package config

import (
	"lucky_lottery/internal/domain"

	"github.com/joho/godotenv" // For loading .env files
	"github.com/shopspring/decimal"
	"github.com/spf13/viper" // Environment lookup with defaults
)

// Config holds the application configuration
type Config struct {
	AppPort       string          // Application port
	DBDriver      string          // Database driver: mysql, postgres or memory
	DBUser        string          // Database user
	DBPassword    string          // Database password
	DBHost        string          // Database host
	DBPort        string          // Database port
	DBName        string          // Database name
	DBSSLMode     string          // Postgres sslmode
	JWTSecret     string          // JWT secret key
	RedisAddr     string          // Redis server address, empty disables caching
	RedisPass     string          // Redis password
	RedisDB       int             // Redis database number
	IsProd        bool            // Is production environment
	LogLevel      string          // Logrus level
	TicketPrice   decimal.Decimal // Price of one ticket
	DrawHour      int             // UTC hour of the daily draw
	AutoDraw      bool            // Run the daily draw from the built-in scheduler
	AdminEmail    string          // Seeded admin account
	AdminPassword string          // Seeded admin password
	PayeeUPIID    string          // UPI handle users pay deposits into
	PayeeName     string          // Payee name shown in the UPI intent
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "lucky_lottery")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IS_PROD", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TICKET_PRICE", "10")
	v.SetDefault("DRAW_HOUR", 20)
	v.SetDefault("AUTO_DRAW", false)
	v.SetDefault("ADMIN_EMAIL", "admin@luckylottery.com")
	v.SetDefault("PAYEE_UPI_ID", "9933308636@ybl")
	v.SetDefault("PAYEE_NAME", "LuckyLottery")
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	price, err := decimal.NewFromString(v.GetString("TICKET_PRICE"))
	if err != nil || !domain.ValidAmount(price) {
		price = decimal.NewFromInt(10) // Fall back to the standard price
	}
	hour := v.GetInt("DRAW_HOUR")
	if hour < 0 || hour > 23 {
		hour = 20
	}
	return &Config{
		AppPort:       v.GetString("APP_PORT"),
		DBDriver:      v.GetString("DB_DRIVER"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBName:        v.GetString("DB_NAME"),
		DBSSLMode:     v.GetString("DB_SSLMODE"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPass:     v.GetString("REDIS_PASS"),
		RedisDB:       v.GetInt("REDIS_DB"),
		IsProd:        v.GetBool("IS_PROD"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		TicketPrice:   price,
		DrawHour:      hour,
		AutoDraw:      v.GetBool("AUTO_DRAW"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		PayeeUPIID:    v.GetString("PAYEE_UPI_ID"),
		PayeeName:     v.GetString("PAYEE_NAME"),
	}
}
