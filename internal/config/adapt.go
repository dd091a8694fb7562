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
	"time"

	"github.com/teradata-labs/skein/pkg/llm/factory"
	"github.com/teradata-labs/skein/pkg/tokens"
	"github.com/teradata-labs/skein/pkg/turn"
)

// FactoryConfig converts LLMConfig into pkg/llm/factory.FactoryConfig.
func (c *LLMConfig) FactoryConfig() factory.FactoryConfig {
	return factory.FactoryConfig{
		DefaultProvider:        c.DefaultProvider,
		DefaultModel:           c.DefaultModel,
		AnthropicAPIKey:        c.AnthropicAPIKey,
		AnthropicModel:         c.AnthropicModel,
		BedrockRegion:          c.BedrockRegion,
		BedrockAccessKeyID:     c.BedrockAccessKeyID,
		BedrockSecretAccessKey: c.BedrockSecretAccessKey,
		BedrockSessionToken:    c.BedrockSessionToken,
		BedrockProfile:         c.BedrockProfile,
		BedrockModelID:         c.BedrockModelID,
		MaxTokens:              c.MaxTokens,
		Temperature:            c.Temperature,
		Timeout:                c.Timeout,
	}
}

// TurnRetryConfig converts RetryConfig into pkg/turn.RetryConfig.
func (c *RetryConfig) TurnRetryConfig() turn.RetryConfig {
	return turn.RetryConfig{
		Enabled:      c.Enabled,
		MaxRetries:   c.MaxRetries,
		InitialDelay: time.Duration(c.InitialDelayMillis) * time.Millisecond,
		Multiplier:   c.Multiplier,
		MaxDelay:     time.Duration(c.MaxDelayMillis) * time.Millisecond,
	}
}

// Thresholds converts TokensConfig into pkg/tokens.Thresholds.
func (c *TokensConfig) Thresholds() tokens.Thresholds {
	return tokens.Thresholds{Warning: c.Warning, Alert: c.Alert, Critical: c.Critical}
}

// IdleTimeout returns the configured idle timeout as a time.Duration. It has
// no caller: pkg/orchestration.Maintenance reaps with DefaultIdleTimeout.
func (c *OrchestrationConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}
