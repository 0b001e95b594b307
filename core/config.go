package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
)

// GoogleOAuthConfig identifies this deployment to the calendar provider's
// OAuth endpoints.
type GoogleOAuthConfig struct {
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	RedirectURI  string `koanf:"redirect_uri" mapstructure:"redirect_uri"`
}

// UploadsConfig carries the storage account identity and signing policy for
// delegated uploads. APISecret is the process-wide signing secret and never
// leaves the server.
type UploadsConfig struct {
	CloudName      string   `koanf:"cloud_name" mapstructure:"cloud_name"`
	APIKey         string   `koanf:"api_key" mapstructure:"api_key"`
	APISecret      string   `koanf:"api_secret" mapstructure:"api_secret"`
	AllowedFolders []string `koanf:"allowed_folders" mapstructure:"allowed_folders"`
	DefaultFolder  string   `koanf:"default_folder" mapstructure:"default_folder"`
}

type Config struct {
	ServiceName   string            `koanf:"service_name" mapstructure:"service_name"`
	DashboardPath string            `koanf:"dashboard_path" mapstructure:"dashboard_path"`
	Google        GoogleOAuthConfig `koanf:"google" mapstructure:"google"`
	Uploads       UploadsConfig     `koanf:"uploads" mapstructure:"uploads"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "integrations",
		DashboardPath: "/dashboard/integrations",
		Uploads: UploadsConfig{
			AllowedFolders: []string{"knowledge_base", "avatars", "uploads"},
			DefaultFolder:  "knowledge_base",
		},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if len(c.Uploads.AllowedFolders) == 0 {
		return fmt.Errorf("core: uploads.allowed_folders must not be empty")
	}
	for _, folder := range c.Uploads.AllowedFolders {
		if strings.TrimSpace(folder) == "" {
			return fmt.Errorf("core: uploads.allowed_folders entries must not be blank")
		}
	}
	return nil
}

// ConfigProvider resolves the effective config from raw sources layered over
// defaults.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// RawConfigLoader supplies untyped config values, typically from env or file.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
