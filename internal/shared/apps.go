package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"app_reviews/internal/domain"
)

// App names one application on both stores.
type App struct {
	Name      string `yaml:"name" validate:"required"`
	GoogleID  string `yaml:"google_id"`
	AppleName string `yaml:"apple_name"`
	AppleID   int64  `yaml:"apple_id"`
}

type catalogue struct {
	Apps []App `yaml:"apps" validate:"required,min=1,dive"`
}

var DefaultApps = []App{{
	Name:      "whatsapp",
	GoogleID:  "com.whatsapp",
	AppleName: "whatsapp-messenger",
	AppleID:   310633997,
}}

// LoadApps reads the YAML app catalogue at path. An empty path or a missing
// file yields DefaultApps; a file that exists but does not parse is an error.
func LoadApps(path string) ([]App, error) {
	if path == "" {
		return DefaultApps, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultApps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read apps file: %w", err)
	}

	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse apps file: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("apps file validation failed: %w", err)
	}
	return c.Apps, nil
}

// RawFile is the file name the scraper writes for this app and platform,
// e.g. whatsapp_google_play_reviews.csv.
func (a App) RawFile(p domain.Platform) string {
	return fmt.Sprintf("%s_%s_reviews.csv", a.Name, p)
}
