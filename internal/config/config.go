package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	ShopID                 string
	LowStockThreshold      int
	SummaryCacheTTLSeconds int
	AuthSecret             string
	AccessTokenTTLMinutes  int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lowStock, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "5"))
	if err != nil || lowStock < 0 {
		lowStock = 5
	}
	summaryTTL, err := strconv.Atoi(getEnv("SUMMARY_CACHE_TTL_SECONDS", "30"))
	if err != nil || summaryTTL < 1 {
		summaryTTL = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		ShopID:                 getEnv("DEFAULT_SHOP_ID", "main-shop"),
		LowStockThreshold:      lowStock,
		SummaryCacheTTLSeconds: summaryTTL,
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  tokenTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
