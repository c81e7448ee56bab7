// Package config holds the run configuration of pgnscraper: command-line
// settings, the optional .pgnscraper YAML file and XDG paths.
package config
