/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-throttleq/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
log:
  level: warn
  format: text
  output: file
  file:
    path: throttleq-{{pid}}.log
    rotation:
      compress: true
      maxSize: 100M
      maxBackups: 42
  addCaller: true
  error:
    noVerbose: true
    verboseSuffix: test-suffix
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelWarn
				cfg.Format = FormatText
				cfg.Output = OutputFile
				cfg.File.Path = "throttleq-{{pid}}.log"
				cfg.File.Rotation.MaxSize = 100 * 1024 * 1024
				cfg.File.Rotation.MaxBackups = 42
				cfg.File.Rotation.Compress = true
				cfg.AddCaller = true
				cfg.Error.NoVerbose = true
				cfg.Error.VerboseSuffix = "test-suffix"
				return cfg
			},
		},
		{
			name:        "json config",
			cfgDataType: config.DataTypeJSON,
			cfgData:     `{"log": {"level": "DEBUG", "output": "stderr", "nocolor": true}}`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelDebug
				cfg.Output = OutputStderr
				cfg.NoColor = true
				return cfg
			},
		},
		{
			name:        "defaults",
			cfgDataType: config.DataTypeYAML,
			cfgData:     "throttleQueue:\n  interval: 1s\n",
			expectedCfg: func() *Config {
				return NewDefaultConfig()
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), tt.cfgDataType, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfg := NewConfig(WithKeyPrefix("queueLog"))
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString("queueLog:\n  level: error\n"), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, "queueLog", cfg.KeyPrefix())
	require.Equal(t, LevelError, cfg.Level)
}

func TestConfigWithInvalidValues(t *testing.T) {
	tests := []struct {
		name           string
		cfgData        string
		expectedErrMsg string
	}{
		{
			name:           "unknown level",
			cfgData:        "log:\n  level: trace\n",
			expectedErrMsg: `log.level: unknown value "trace", should be one of [error warn info debug]`,
		},
		{
			name:           "unknown format",
			cfgData:        "log:\n  format: xml\n",
			expectedErrMsg: `log.format: unknown value "xml", should be one of [json text]`,
		},
		{
			name:           "unknown output",
			cfgData:        "log:\n  output: syslog\n",
			expectedErrMsg: `log.output: unknown value "syslog", should be one of [stdout stderr file]`,
		},
		{
			name:           "file output without path",
			cfgData:        "log:\n  output: file\n",
			expectedErrMsg: `log.file.path: cannot be empty when "file" output is used`,
		},
		{
			name:           "too small max size",
			cfgData:        "log:\n  file:\n    rotation:\n      maxSize: 1K\n",
			expectedErrMsg: "log.file.rotation.maxSize: should be >= 1M",
		},
		{
			name:           "too few max backups",
			cfgData:        "log:\n  file:\n    rotation:\n      maxBackups: 0\n",
			expectedErrMsg: "log.file.rotation.maxBackups: should be >= 1",
		},
		{
			name:           "negative max age",
			cfgData:        "log:\n  file:\n    rotation:\n      maxAgeDays: -1\n",
			expectedErrMsg: "log.file.rotation.maxAgeDays: should be >= 0",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}

func TestConfig_UnmarshalYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("level: debug\nfile:\n  rotation:\n    maxSize: 10M\n"), &cfg))
	require.Equal(t, LevelDebug, cfg.Level)
	require.Equal(t, config.ByteSize(10*1024*1024), cfg.File.Rotation.MaxSize)
}
