package config

import "testing"

type fakeFlags map[string]interface{}

func (f fakeFlags) String(name string) string {
	v, _ := f[name].(string)
	return v
}

func (f fakeFlags) Int(name string) int {
	v, _ := f[name].(int)
	return v
}

func TestFromFlags_DerivesPathsFromDataRoot(t *testing.T) {
	flags := fakeFlags{
		"host":        "127.0.0.1",
		"port":        9000,
		"key":         "secret",
		"docker-host": "unix:///var/run/docker.sock",
		"data-root":   "/srv/wings",
		"redis-addr":  "",
	}

	cfg := FromFlags(flags, "1.2.3")

	if cfg.VolumeRoot != "/srv/wings/volumes" {
		t.Fatalf("unexpected volume root: %s", cfg.VolumeRoot)
	}
	if cfg.StateDocPath != "/srv/wings/storage/states.json" {
		t.Fatalf("unexpected state doc path: %s", cfg.StateDocPath)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.Version != "1.2.3" {
		t.Fatalf("unexpected version: %s", cfg.Version)
	}
	if cfg.Key != "secret" {
		t.Fatalf("unexpected key: %s", cfg.Key)
	}
}
