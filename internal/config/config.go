package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr     string
	BaseURL        string
	DatabaseURL    string
	CookieHashKey  []byte
	CookieBlockKey []byte

	// upper bound on any single store/catalog call
	StoreTimeout time.Duration
}

func FromEnv() (Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		BaseURL:     getenv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	timeoutSec, err := strconv.Atoi(getenv("STORE_TIMEOUT_SECONDS", "3"))
	if err != nil || timeoutSec < 1 {
		return Config{}, fmt.Errorf("invalid STORE_TIMEOUT_SECONDS")
	}
	cfg.StoreTimeout = time.Duration(timeoutSec) * time.Second

	hashKey := os.Getenv("COOKIE_HASH_KEY")
	blockKey := os.Getenv("COOKIE_BLOCK_KEY")
	if hashKey == "" || blockKey == "" {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (32 and 32/16/24/32 bytes base64)")
	}
	var derr error
	cfg.CookieHashKey, derr = decodeB64(hashKey)
	if derr != nil {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", derr)
	}
	cfg.CookieBlockKey, derr = decodeB64(blockKey)
	if derr != nil {
		return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", derr)
	}

	return cfg, nil
}

func decodeB64(s string) ([]byte, error) {
	b, err := os.ReadFile(s)
	if err == nil {
		// allow pointing to file path for k8s secret mounts
		s = string(b)
	}
	s = strings.TrimRight(s, " \t\r\n")
	return base64.StdEncoding.DecodeString(s)
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
