package config

import "time"

// APIConfig describes how the front end reaches the CiensPay backend
type APIConfig interface {
	GetAPIURL() string
	GetAPITimeout() time.Duration
	GetRefreshMode() string
	GetRefreshPath() string
	GetProfilePath() string
	GetRefreshSingleFlight() bool
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIURL() string {
	return GetEnv("API_URL", "http://localhost:8000/api")
}

func (API) GetAPITimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 10*time.Second)
}

// GetRefreshMode is "custom" (/auth/refresh/) or "simplejwt" (/token/refresh/)
func (API) GetRefreshMode() string {
	return GetEnv("REFRESH_MODE", "custom")
}

// GetRefreshPath overrides the refresh mode's default path when set
func (API) GetRefreshPath() string {
	return GetEnv("REFRESH_PATH", "")
}

func (API) GetProfilePath() string {
	return GetEnv("PROFILE_PATH", "/auth/profile/")
}

func (API) GetRefreshSingleFlight() bool {
	return GetEnvBool("REFRESH_SINGLE_FLIGHT", false)
}
