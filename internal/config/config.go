package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// ResultsTTL bounds how long finished games stay in Redis; empty keeps them.
		ResultsTTL string `yaml:"resultsTtl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// Library is an optional JSON file with quizzes hostable by id.
		Library string `yaml:"library"`
	} `yaml:"quiz"`
	Game Game `yaml:"game"`
	Log  struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Game holds the question-cycle timings as duration strings.
type Game struct {
	EarlyEndGrace    string `yaml:"earlyEndGrace"`
	RevealDelay      string `yaml:"revealDelay"`
	AdvanceDelay     string `yaml:"advanceDelay"`
	StartDelay       string `yaml:"startDelay"`
	LobbyIdleTimeout string `yaml:"lobbyIdleTimeout"`
	PruneInterval    string `yaml:"pruneInterval"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	return fallback
}
