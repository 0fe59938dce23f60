package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Service Service `yaml:"service"`
	Server  Server  `yaml:"server"`
}

type Service struct {
	Name string `yaml:"name"`
	// Operator is the identity allowed to call operator-only endpoints
	// such as value deposits. Empty means unrestricted (dev mode).
	Operator string `yaml:"operator"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}

	return config, nil
}
