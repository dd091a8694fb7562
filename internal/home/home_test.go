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
package home

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDBPathForHome_DefaultsUnderCanonicalDir(t *testing.T) {
	home := t.TempDir()

	path, err := ResolveDBPathForHome("", home)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".skein", "database", DatabaseFilename), path)
	require.NoError(t, ValidateDBPathForHome(path, home))
}

func TestValidateDBPathForHome_RejectsWrongFilename(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".skein", "database")
	require.NoError(t, os.MkdirAll(dir, 0750))

	err := ValidateDBPathForHome(filepath.Join(dir, "other.db"), home)
	require.Error(t, err)
}

func TestValidateDBPathForHome_RejectsWrongParent(t *testing.T) {
	home := t.TempDir()
	elsewhere := t.TempDir()

	err := ValidateDBPathForHome(filepath.Join(elsewhere, DatabaseFilename), home)
	require.Error(t, err)
}

func TestValidateDBPathForHome_RejectsSymlink(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".skein", "database")
	require.NoError(t, os.MkdirAll(dir, 0750))

	real := filepath.Join(home, "real.db")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0600))

	link := filepath.Join(dir, DatabaseFilename)
	require.NoError(t, os.Symlink(real, link))

	err := ValidateDBPathForHome(link, home)
	require.Error(t, err)
	require.Contains(t, err.Error(), "symlink")
}

func TestValidateDBPathForHome_AcceptsExistingPlainFile(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".skein", "database")
	require.NoError(t, os.MkdirAll(dir, 0750))

	path := filepath.Join(dir, DatabaseFilename)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	require.NoError(t, ValidateDBPathForHome(path, home))
}
