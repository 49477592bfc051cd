package account

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"golang.org/x/crypto/bcrypt"
)

const DefaultAdminUsername = "admin"

// Config holds the account core settings read from the environment.
type Config struct {
	AdminUsername   string        `env:"DEFAULT_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword   string        `env:"DEFAULT_ADMIN_PASSWORD"`
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTExpiresIn    time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"pitchfork-account"`
	AccessKeySecret string        `env:"ACCESS_KEY_SECRET"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
}

// ConfigFromEnv reads the account config. JWT_SECRET and the admin password
// are checked where they are used, not here, so that commands that need
// neither can still run.
func ConfigFromEnv() (Config, error) {
	const op = "ConfigFromEnv"
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, newErrorMsg(KindConfiguration, op, err.Error())
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = DefaultAdminUsername
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, newErrorMsg(KindConfiguration, op,
			fmt.Sprintf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return cfg, nil
}
