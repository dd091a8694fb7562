// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	t.Setenv("SKEIN_DATA_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.DefaultProvider)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 16, cfg.Orchestration.MaxConcurrentSessions)
	assert.Equal(t, 0.70, cfg.Tokens.Warning)
	assert.Equal(t, filepath.Join(cfg.DataDir, "skein.db"), cfg.EventStore.Path)
}

func TestLoadReadsYAMLFileAndEnvOverride(t *testing.T) {
	t.Setenv("SKEIN_DATA_DIR", t.TempDir())

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
llm:
  default_provider: bedrock
  bedrock_region: us-east-2
orchestration:
  max_concurrent_sessions: 4
`), 0o644))

	t.Setenv("SKEIN_LLM_BEDROCK_REGION", "eu-west-1")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "bedrock", cfg.LLM.DefaultProvider)
	assert.Equal(t, "eu-west-1", cfg.LLM.BedrockRegion)
	assert.Equal(t, 4, cfg.Orchestration.MaxConcurrentSessions)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 0}, LLM: LLMConfig{DefaultProvider: "anthropic"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingProvider(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 5360}}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Setenv("SKEIN_DATA_DIR", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestDataDirExpandsEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("SKEIN_DATA_DIR", tmp)
	assert.Equal(t, tmp, DataDir())
}

func TestDataDirDefaultsToHomeSkein(t *testing.T) {
	t.Setenv("SKEIN_DATA_DIR", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".skein"), DataDir())
}
