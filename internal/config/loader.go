package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// searchDirs are tried, in order, for a relative config path that does
// not exist in the working directory.
func searchDirs() []string {
	dirs := []string{
		"configs",
		filepath.Join(string(filepath.Separator), "etc", "avacatalog"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".avacatalog"))
	}
	return dirs
}

// Loader reads YAML configuration, expanding ${VAR} and ${VAR:-default}
// references from the environment. $$ produces a literal dollar sign.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// NewLoader returns a Loader backed by the process environment.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// LoadConfig reads the config file at path.
func LoadConfig(path string) (*CatalogConfig, error) {
	return NewLoader().Load(path)
}

// LoadConfigFromReader reads a config document from r.
func LoadConfigFromReader(r io.Reader) (*CatalogConfig, error) {
	return NewLoader().LoadFromReader(r)
}

// Load reads the config file at path. Settings the file omits keep their
// defaults.
func (l *Loader) Load(path string) (*CatalogConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return l.decode(data)
}

// LoadFromReader reads a config document from r.
func (l *Loader) LoadFromReader(r io.Reader) (*CatalogConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return l.decode(data)
}

func (l *Loader) decode(data []byte) (*CatalogConfig, error) {
	cfg := DefaultConfig()

	expanded := l.substituteEnvVars(string(data))
	if strings.TrimSpace(expanded) != "" {
		dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// substituteEnvVars expands ${NAME} and ${NAME:-default}. A variable that
// is set, even to the empty string, wins over the default. Unterminated
// references are copied through unchanged.
func (l *Loader) substituteEnvVars(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for {
		i := strings.IndexByte(s, '$')
		if i < 0 || i == len(s)-1 {
			out.WriteString(s)
			return out.String()
		}
		out.WriteString(s[:i])
		s = s[i:]

		switch {
		case s[1] == '$':
			out.WriteByte('$')
			s = s[2:]
		case s[1] == '{':
			end := strings.IndexByte(s, '}')
			if end < 0 {
				out.WriteString(s)
				return out.String()
			}
			out.WriteString(l.resolve(s[2:end]))
			s = s[end+1:]
		default:
			out.WriteByte('$')
			s = s[1:]
		}
	}
}

func (l *Loader) resolve(ref string) string {
	name, def, _ := strings.Cut(ref, ":-")
	if v, ok := l.lookupEnv(name); ok {
		return v
	}
	return def
}

// ResolveConfigPath finds path on disk. Relative paths missing from the
// working directory are looked up in the configs directory, then
// /etc/avacatalog, then ~/.avacatalog.
func ResolveConfigPath(path string) (string, error) {
	if fileExists(path) {
		return filepath.Abs(path)
	}
	if !filepath.IsAbs(path) {
		for _, dir := range searchDirs() {
			if candidate := filepath.Join(dir, path); fileExists(candidate) {
				return filepath.Abs(candidate)
			}
		}
	}
	return "", fmt.Errorf("config file not found: %s", path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
