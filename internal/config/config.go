// Package config collects the process-wide settings cmd/wings needs to wire
// up the runtime client, state store, control API and session multiplexer.
package config

import "fmt"

// Config is the resolved set of flags/env the wings process runs with.
type Config struct {
	Host         string
	Port         int
	Key          string
	DockerHost   string
	Version      string
	VolumeRoot   string
	StateDocPath string
	RedisAddr    string
}

// CLIFlags is the subset of urfave/cli.Context that FromFlags needs,
// satisfied directly by *cli.Context without importing urfave/cli here.
type CLIFlags interface {
	String(name string) string
	Int(name string) int
}

// FromFlags resolves a Config from parsed CLI flags/env vars (spec's
// WINGS_HOST/WINGS_PORT/WINGS_KEY/WINGS_DOCKER_HOST/WINGS_DATA_ROOT/
// WINGS_REDIS_ADDR convention), deriving the on-disk state document and
// volume root from a single data-root directory (spec §6 layout).
func FromFlags(flags CLIFlags, version string) Config {
	dataRoot := flags.String("data-root")
	return Config{
		Host:         flags.String("host"),
		Port:         flags.Int("port"),
		Key:          flags.String("key"),
		DockerHost:   flags.String("docker-host"),
		Version:      version,
		VolumeRoot:   fmt.Sprintf("%s/volumes", dataRoot),
		StateDocPath: fmt.Sprintf("%s/storage/states.json", dataRoot),
		RedisAddr:    flags.String("redis-addr"),
	}
}

// Addr is the host:port pair the control API's http.Server binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
