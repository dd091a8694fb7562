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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateArguments checks args against a tool's declared InputSchema before
// execution, catching a malformed tool call (missing required field, wrong
// type) the moment it arrives rather than letting the tool's own Execute
// fail on a type assertion or a nil map lookup. A nil schema means the tool
// takes no constrained input and always validates.
func ValidateArguments(schema *JSONSchema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("shuttle: marshal tool schema: %w", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("shuttle: validate arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("arguments do not match tool schema: %s", strings.Join(msgs, "; "))
}
