// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

import "fmt"

// ValidateConfig returns a non-nil error if the config cannot be mounted.
func ValidateConfig(c *Config) error {
	if c.Volume.BackingFile == "" {
		return fmt.Errorf("volume.backing-file is required")
	}
	if c.Volume.SectorCount <= 0 {
		return fmt.Errorf("volume.sector-count must be positive, got %d", c.Volume.SectorCount)
	}
	if c.Volume.CacheMaxSectors <= 0 {
		return fmt.Errorf("volume.cache-max-sectors must be positive, got %d", c.Volume.CacheMaxSectors)
	}
	if c.Volume.RootDirHint <= 0 {
		return fmt.Errorf("volume.root-dir-hint must be positive, got %d", c.Volume.RootDirHint)
	}
	switch c.Logging.Severity {
	case SeverityTrace, SeverityDebug, SeverityInfo, SeverityWarning, SeverityError:
	default:
		return fmt.Errorf("invalid logging.severity %q", c.Logging.Severity)
	}
	switch c.Logging.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}
	return nil
}
