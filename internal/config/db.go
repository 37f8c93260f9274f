package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const defaultDSN = "carbon:carbon@tcp(localhost:3306)/carbonaware?parseTime=true"

type dbEnv struct {
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Host     string `envconfig:"DB_HOST"`
	Port     string `envconfig:"DB_PORT"`
	Name     string `envconfig:"DB_NAME"`
	DSN      string `envconfig:"DATABASE_DSN"`
}

// Returns the database connection string
// The DB_* variables win when all are set, then DATABASE_DSN, then a local default
func GetDatabaseDSN() string {
	var env dbEnv
	if err := envconfig.Process("", &env); err != nil {
		return defaultDSN
	}

	if env.User != "" && env.Password != "" && env.Host != "" && env.Port != "" && env.Name != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", env.User, env.Password, env.Host, env.Port, env.Name)
	}

	if env.DSN != "" {
		return env.DSN
	}

	return defaultDSN
}
