package config

import (
	"encoding/hex"
	"fmt"
	"time"
)

type SessionConfig interface {
	GetAdminEmail() string
	GetCookieHashKey() ([]byte, error)
	GetCookieBlockKey() ([]byte, error)
	GetCookieMaxAge() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetAdminEmail is the address whose cached user is treated as the administrator
func (Session) GetAdminEmail() string {
	return GetEnv("ADMIN_EMAIL", "admin@cienspay.com")
}

// GetCookieHashKey returns the hex decoded HMAC key, nil when unset
func (Session) GetCookieHashKey() ([]byte, error) {
	return hexKey("COOKIE_HASH_KEY")
}

// GetCookieBlockKey returns the hex decoded AES key, nil when unset (no encryption)
func (Session) GetCookieBlockKey() ([]byte, error) {
	return hexKey("COOKIE_BLOCK_KEY")
}

func (Session) GetCookieMaxAge() time.Duration {
	return GetEnvDuration("COOKIE_MAX_AGE", 7*24*time.Hour)
}

func hexKey(envVar string) ([]byte, error) {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("[config hexKey] %s is not valid hex: %w", envVar, err)
	}
	return key, nil
}
