package app

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/opgrid/rtacgen/internal/tagmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, tagmap.WrapFirstGroupRestByDevice, s.WrapMode())
	assert.Equal(t, tagmap.DefaultQualityCheckTemplate, s.QualityCheckTemplate)
}

func TestSettingsValidate(t *testing.T) {
	s := defaultSettings()
	s.QualityWrapMode = "sometimes"
	assert.Error(t, s.Validate())

	s = defaultSettings()
	s.MaxScadaNameLength = 0
	assert.Error(t, s.Validate())
}

func TestLoadSettingsFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rtacgen.yaml")

	// missing file: defaults written back
	s, err := loadSettingsFile(filename)
	require.NoError(t, err)
	assert.Equal(t, defaultSettings(), s)
	data, err := ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "quality_wrap_mode: wrap_first_group_rest_by_device")

	// partial file: merged over the defaults and rewritten complete
	require.NoError(t, ioutil.WriteFile(filename, []byte("quality_wrap_mode: none\n"), 0666))
	s, err = loadSettingsFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "none", s.QualityWrapMode)
	assert.Equal(t, 32, s.MaxScadaNameLength)
	data, err = ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_scada_name_length: 32")

	// invalid settings are refused and the file left alone
	require.NoError(t, ioutil.WriteFile(filename, []byte("quality_wrap_mode: sometimes\n"), 0666))
	_, err = loadSettingsFile(filename)
	require.Error(t, err)
	data, err = ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "quality_wrap_mode: sometimes\n", string(data))
}

func TestSettingsYamlRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(defaultSettings())
	require.NoError(t, err)

	var s Settings
	require.NoError(t, yaml.Unmarshal(data, &s))
	assert.Equal(t, defaultSettings(), s)

	// partial files keep the defaults for omitted keys
	s = defaultSettings()
	require.NoError(t, yaml.Unmarshal([]byte("quality_wrap_mode: none\n"), &s))
	assert.Equal(t, "none", s.QualityWrapMode)
	assert.Equal(t, 32, s.MaxScadaNameLength)
}
