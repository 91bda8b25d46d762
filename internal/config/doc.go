// Package config provides loading and environment overlay for the Konfig
// servers' YAML/JSON configuration file.
//
// Example:
//
//	cfg, err := config.Load(os.Args[1]) // "" for defaults
//	if err != nil { ... }
//	config.FromEnv(&cfg)
package config
