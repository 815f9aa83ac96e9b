package app

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/pkg/must"
	"github.com/opgrid/rtacgen/internal/tagmap"
	"gopkg.in/yaml.v3"
)

// Settings are the generator options kept outside the workbook: how the tag
// processor is quality wrapped and how strict SCADA naming is.
type Settings struct {
	QualityWrapMode      string `yaml:"quality_wrap_mode"`
	QualityCheckTemplate string `yaml:"quality_check_template"`
	MaxScadaNameLength   int    `yaml:"max_scada_name_length"`
}

func defaultSettings() Settings {
	return Settings{
		QualityWrapMode:      tagmap.WrapFirstGroupRestByDevice.String(),
		QualityCheckTemplate: tagmap.DefaultQualityCheckTemplate,
		MaxScadaNameLength:   32,
	}
}

func (s Settings) Validate() error {
	if _, err := tagmap.ParseQualityWrapMode(s.QualityWrapMode); err != nil {
		return err
	}
	if s.MaxScadaNameLength < 1 {
		return merry.Errorf("max_scada_name_length=%d: must be at least 1", s.MaxScadaNameLength)
	}
	return nil
}

// WrapMode returns the parsed quality wrap mode. Validate must have passed.
func (s Settings) WrapMode() tagmap.QualityWrapMode {
	m, err := tagmap.ParseQualityWrapMode(s.QualityWrapMode)
	must.PanicIf(err)
	return m
}

func settingsFilename() string {
	return filepath.Join(filepath.Dir(os.Args[0]), "rtacgen.yaml")
}

// loadSettings reads rtacgen.yaml next to the executable. A missing file is
// replaced with defaults; an existing file is merged over the defaults and
// written back in the normalized complete form so the options are
// discoverable.
func loadSettings() (Settings, error) {
	return loadSettingsFile(settingsFilename())
}

func loadSettingsFile(filename string) (Settings, error) {
	data, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		s := defaultSettings()
		must.WriteFile(filename, must.MarshalYaml(s), 0666)
		return s, nil
	}
	if err != nil {
		return Settings{}, merry.Prependf(err, "read %s", filename)
	}
	s := defaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, merry.Prependf(err, "parse %s", filename)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, merry.Prependf(err, "%s", filename)
	}
	must.WriteFile(filename, must.MarshalYaml(s), 0666)
	return s, nil
}
