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
package factory

import (
	"fmt"
	"os"

	"github.com/teradata-labs/skein/pkg/llm/anthropic"
	"github.com/teradata-labs/skein/pkg/llm/bedrock"
)

// ProviderFactory creates LLM providers dynamically based on configuration.
type ProviderFactory struct {
	// Current configuration
	config FactoryConfig
}

// FactoryConfig holds configuration for creating LLM providers.
type FactoryConfig struct {
	// Default provider to use
	DefaultProvider string
	DefaultModel    string

	// Anthropic configuration
	AnthropicAPIKey string
	AnthropicModel  string

	// Bedrock configuration
	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string
	BedrockModelID         string

	// Common settings
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(config FactoryConfig) *ProviderFactory {
	// Set defaults
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Temperature == 0 {
		config.Temperature = 1.0
	}
	if config.Timeout == 0 {
		config.Timeout = 60
	}

	return &ProviderFactory{
		config: config,
	}
}

// CreateProvider creates an LLM provider for the specified provider type and model.
// Returns interface{} to avoid import cycles (caller should type assert to types.LLMProvider).
func (f *ProviderFactory) CreateProvider(provider, model string) (interface{}, error) {
	// Use defaults if not specified
	if provider == "" {
		provider = f.config.DefaultProvider
	}
	if model == "" {
		model = f.config.DefaultModel
	}

	switch provider {
	case "anthropic":
		return f.createAnthropicProvider(model)
	case "bedrock":
		return f.createBedrockProvider(model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (f *ProviderFactory) createAnthropicProvider(model string) (interface{}, error) {
	apiKey := f.config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}

	if model == "" {
		model = f.config.AnthropicModel
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
	}), nil
}

func (f *ProviderFactory) createBedrockProvider(model string) (interface{}, error) {
	if model == "" {
		model = f.config.BedrockModelID
	}
	if model == "" {
		model = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	}

	region := f.config.BedrockRegion
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	// Use the new Anthropic SDK-based client for better reliability
	return bedrock.NewSDKClient(bedrock.Config{
		Region:          region,
		AccessKeyID:     f.config.BedrockAccessKeyID,
		SecretAccessKey: f.config.BedrockSecretAccessKey,
		SessionToken:    f.config.BedrockSessionToken,
		Profile:         f.config.BedrockProfile,
		ModelID:         model,
		MaxTokens:       f.config.MaxTokens,
		Temperature:     f.config.Temperature,
	})
}

// IsProviderAvailable checks if a provider is available (credentials/config present).
func (f *ProviderFactory) IsProviderAvailable(provider string) bool {
	_, err := f.CreateProvider(provider, "")
	return err == nil
}
