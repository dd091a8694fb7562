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
package shuttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArguments_NilSchema(t *testing.T) {
	require.NoError(t, ValidateArguments(nil, map[string]interface{}{"anything": "goes"}))
}

func TestValidateArguments_Valid(t *testing.T) {
	schema := &JSONSchema{
		Type:     "object",
		Required: []string{"path"},
		Properties: map[string]*JSONSchema{
			"path":  {Type: "string"},
			"limit": {Type: "integer"},
		},
	}
	err := ValidateArguments(schema, map[string]interface{}{"path": "/tmp/x", "limit": float64(10)})
	assert.NoError(t, err)
}

func TestValidateArguments_MissingRequired(t *testing.T) {
	schema := &JSONSchema{
		Type:     "object",
		Required: []string{"path"},
		Properties: map[string]*JSONSchema{
			"path": {Type: "string"},
		},
	}
	err := ValidateArguments(schema, map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arguments do not match tool schema")
}

func TestValidateArguments_WrongType(t *testing.T) {
	schema := &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"limit": {Type: "integer"},
		},
	}
	err := ValidateArguments(schema, map[string]interface{}{"limit": "not a number"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arguments do not match tool schema")
}

func TestValidateArguments_NilArgs(t *testing.T) {
	schema := &JSONSchema{Type: "object"}
	assert.NoError(t, ValidateArguments(schema, nil))
}
