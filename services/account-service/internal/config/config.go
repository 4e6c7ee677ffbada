package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// AccountServiceConfig holds the configuration of the account service.
type AccountServiceConfig struct {
	HTTPAddr            string        `env:"HTTP_ADDR"              envDefault:":8080"`
	GRPCHealthPort      int           `env:"GRPC_HEALTH_PORT"       envDefault:"9090"`
	AppVerifyURL        string        `env:"APP_VERIFY_URL,required"`
	AppPasswordResetURL string        `env:"APP_PASSWORD_RESET_URL,required"`
	MinPasswordLength   int           `env:"MIN_PASSWORD_LENGTH"    envDefault:"6"`
	NotificationTimeout time.Duration `env:"NOTIFICATION_TIMEOUT"   envDefault:"10s"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT"       envDefault:"15s"`

	Log    LogConfig    `envPrefix:"LOG_"`
	Mongo  MongoConfig  `envPrefix:"MONGO_"`
	Token  TokenConfig  `envPrefix:"TOKEN_"`
	Consul ConsulConfig `envPrefix:"CONSUL_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

type MongoConfig struct {
	URI      string `env:"URI"      envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"accounts"`
}

// TokenConfig holds the secrets and lifetimes of every token the service issues.
type TokenConfig struct {
	Issuer                      string        `env:"ISSUER"                         envDefault:"accounts-api"`
	AccessTokenSecret           string        `env:"ACCESS_TOKEN_SECRET,required"`
	AccessTokenExpiresIn        time.Duration `env:"ACCESS_TOKEN_EXPIRES_IN"        envDefault:"15m"`
	VerificationTokenExpiresIn  time.Duration `env:"VERIFICATION_TOKEN_EXPIRES_IN"  envDefault:"24h"`
	PasswordResetTokenExpiresIn time.Duration `env:"PASSWORD_RESET_TOKEN_EXPIRES_IN" envDefault:"1h"`
}

type ConsulConfig struct {
	Enabled     bool   `env:"ENABLED"      envDefault:"false"`
	Address     string `env:"ADDRESS"      envDefault:"localhost:8500"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"account-service"`
	ServiceHost string `env:"SERVICE_HOST" envDefault:"localhost"`
}

// Load parses the configuration from the environment.
func Load() (*AccountServiceConfig, error) {
	cfg, err := env.ParseAs[AccountServiceConfig]()
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AccountServiceConfig) validate() error {
	if c.MinPasswordLength < 6 {
		return errors.New("MIN_PASSWORD_LENGTH must be at least 6")
	}
	if c.Token.VerificationTokenExpiresIn <= 0 || c.Token.PasswordResetTokenExpiresIn <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if len(c.Token.AccessTokenSecret) < 32 {
		return errors.New("TOKEN_ACCESS_TOKEN_SECRET must be at least 32 characters")
	}

	return nil
}
