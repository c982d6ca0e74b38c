package config

import (
	_ "embed"
)

// indexer config
//
//go:embed default.config.yml
var DefaultConfigYml string
