// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package utils provides utility functions shared across RCRT's packages.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir ensures the .rcrt data directory exists at the given base
// path. If basePath is empty or ".", it creates ./.rcrt in the current
// directory; otherwise {basePath}/.rcrt. It only creates the directory; it
// does not create or name any file inside it.
//
// Returns the full path to the data directory and any error.
func EnsureDataDir(basePath string) (string, error) {
	var dataDir string
	if basePath == "" || basePath == "." {
		dataDir = ".rcrt"
	} else {
		dataDir = filepath.Join(basePath, ".rcrt")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory at '%s': %w", dataDir, err)
	}

	return dataDir, nil
}
