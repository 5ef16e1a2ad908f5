package config

type SecurityConfig interface {
	GetLoginRatePerMinute() int
	GetLoginBurst() int
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetLoginRatePerMinute() int {
	return GetEnvInt("LOGIN_RATE_PER_MINUTE", 10)
}

func (Security) GetLoginBurst() int {
	return GetEnvInt("LOGIN_BURST", 5)
}
