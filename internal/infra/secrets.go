package infra

import "github.com/kelseyhightower/envconfig"

type Secrets interface {
	GetDBPassword() string
	GetRedisPassword() string
}

type EnvSecrets struct {
	dbPassword    string
	redisPassword string
}

func NewEnvSecrets() EnvSecrets {
	secrets := struct {
		DBPassword    string
		RedisPassword string
	}{}
	envconfig.MustProcess("VALUES_SECRETS", &secrets)

	return EnvSecrets{
		dbPassword:    secrets.DBPassword,
		redisPassword: secrets.RedisPassword,
	}
}

func (s *EnvSecrets) GetDBPassword() string {
	return s.dbPassword
}

func (s *EnvSecrets) GetRedisPassword() string {
	return s.redisPassword
}
