// Package common holds helpers shared by alarm hub tooling.
//
// It provides a websocket client for the hub protocol: start and stop
// commands, ping heartbeats and reading pushed alarm lists.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
