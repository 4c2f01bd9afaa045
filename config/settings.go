package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Addr              string  `yaml:"addr"`
	AssetsDirectory   string  `yaml:"assets_directory"`
	WebDirectory      string  `yaml:"web_directory"`
	Encoding          string  `yaml:"encoding"`
	UnitScaleOverride float32 `yaml:"unit_scale_override"`
	UpAxis            string  `yaml:"up_axis"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:            ":8000",
		AssetsDirectory: "assets",
		WebDirectory:    "web",
	}
}

func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	f, err := os.Open(path)
	if err != nil {
		return s, errors.Wrapf(err, "Failed to open settings %q", path)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&s); err != nil {
		return s, errors.Wrapf(err, "Failed to unmarshal settings %q", path)
	}
	return s, nil
}

func SaveSettings(path string, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create settings %q", path)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&s); err != nil {
		return errors.Wrapf(err, "Failed to marshal settings")
	}
	return enc.Close()
}

// Apply pushes loaded settings into the package-level state.
func (s *Settings) Apply() error {
	if s.Encoding != "" {
		if err := SetEncoding(s.Encoding); err != nil {
			return err
		}
	}
	SetUnitScaleOverride(s.UnitScaleOverride)
	switch s.UpAxis {
	case "", "z":
		SetTargetUpAxis(UpAxisZ)
	case "y":
		SetTargetUpAxis(UpAxisY)
	default:
		return errors.Errorf("Unknown up axis %q", s.UpAxis)
	}
	return nil
}
