// config.go: settings struct and functions to load and save the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// TaxonomySettings locates the local taxonomy index.
type TaxonomySettings struct {
	Database string // path to the read-only taxonomy index database
}

// CacheSettings locates the application cache database.
type CacheSettings struct {
	Database string // path to the enrichment/media cache database
}

// ImageSettings controls the on-disk media cache.
type ImageSettings struct {
	Path     string // directory for downloaded media files
	MaxBytes int64  // capacity bound for the media cache
	Quality  string // preferred resolution class: "hd" or "thumb"
}

// ConnectivitySettings controls the reachability probe.
type ConnectivitySettings struct {
	ProbeURL string // target for the reachability check
	ProbeTTL int    // seconds a probe verdict stays valid
}

// ProviderEndpoint holds per-provider endpoint configuration.
type ProviderEndpoint struct {
	Endpoint string
	Language string // only used by wikipedia
}

// ProviderSettings holds settings shared by all content providers.
type ProviderSettings struct {
	Timeout     int    // HTTP timeout in seconds
	UserAgent   string // override for the default user agent
	GBIF        ProviderEndpoint
	Wikipedia   ProviderEndpoint
	INaturalist ProviderEndpoint
}

// Settings is the top-level application configuration.
type Settings struct {
	Debug        bool
	Taxonomy     TaxonomySettings
	Cache        CacheSettings
	Images       ImageSettings
	Connectivity ConnectivitySettings
	Providers    ProviderSettings
}

var (
	settingsOnce     sync.Once
	settingsInstance *Settings
)

// Load reads the configuration from file and environment and returns the
// populated settings. A missing config file is not an error; defaults apply.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, p := range configPaths() {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("faunadex")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Setting returns the process-wide settings, loading them on first use.
// Load errors fall back to defaults so library consumers always get a
// usable value.
func Setting() *Settings {
	settingsOnce.Do(func() {
		s, err := Load()
		if err != nil {
			v := viper.New()
			setDefaults(v)
			s = &Settings{}
			_ = v.Unmarshal(s)
		}
		settingsInstance = s
	})
	return settingsInstance
}

// Save writes the settings as YAML to the given path, creating parent
// directories as needed.
func Save(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// WriteDefault writes the embedded default config template to the given
// path if no file exists there yet.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		return fmt.Errorf("failed to read embedded default config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}

	return os.WriteFile(path, data, 0o644)
}

// configPaths lists the directories searched for a config file, most
// specific first.
func configPaths() []string {
	paths := []string{"."}
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "faunadex"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".faunadex"))
	}
	return paths
}

func validate(s *Settings) error {
	if s.Images.MaxBytes <= 0 {
		return fmt.Errorf("images.maxbytes must be positive, got %d", s.Images.MaxBytes)
	}
	switch s.Images.Quality {
	case "hd", "thumb":
	default:
		return fmt.Errorf("images.quality must be hd or thumb, got %q", s.Images.Quality)
	}
	if s.Connectivity.ProbeTTL <= 0 {
		return fmt.Errorf("connectivity.probettl must be positive, got %d", s.Connectivity.ProbeTTL)
	}
	if s.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive, got %d", s.Providers.Timeout)
	}
	return nil
}
