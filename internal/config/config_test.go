package config

import (
	"encoding/base64"
	"testing"
	"time"
)

func validKeys(t *testing.T) {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	t.Setenv("COOKIE_HASH_KEY", key)
	t.Setenv("COOKIE_BLOCK_KEY", key)
}

func TestFromEnvDefaults(t *testing.T) {
	validKeys(t)
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("STORE_TIMEOUT_SECONDS", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("default listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Fatalf("default store timeout: got %v", cfg.StoreTimeout)
	}
	if len(cfg.CookieHashKey) != 32 {
		t.Fatalf("hash key length: got %d", len(cfg.CookieHashKey))
	}
}

func TestFromEnvRequiresCookieKeys(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", "")
	t.Setenv("COOKIE_BLOCK_KEY", "")

	if _, err := FromEnv(); err == nil {
		t.Fatal("want error without cookie keys")
	}
}

func TestFromEnvRejectsBadTimeout(t *testing.T) {
	validKeys(t)
	for _, v := range []string{"0", "-1", "abc"} {
		t.Setenv("STORE_TIMEOUT_SECONDS", v)
		if _, err := FromEnv(); err == nil {
			t.Fatalf("STORE_TIMEOUT_SECONDS=%q accepted", v)
		}
	}
}

func TestFromEnvRejectsBadKeys(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", "not-base64!!!")
	t.Setenv("COOKIE_BLOCK_KEY", "also-bad!!!")

	if _, err := FromEnv(); err == nil {
		t.Fatal("want error for undecodable keys")
	}
}
