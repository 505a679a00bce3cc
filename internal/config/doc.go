// Package config defines settings shared by the hub server and its client,
// and provides helpers to load, validate and save them in YAML format.
package config
