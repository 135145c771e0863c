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

const (
	// SectorSize is the fixed block size of the volume; it is not configurable.
	SectorSize = 512

	// DefaultCacheMaxSectors is the default bound on the buffer cache's
	// live entry count.
	DefaultCacheMaxSectors = 64

	// DefaultSectorCount is a small demo-sized volume (~64MiB).
	DefaultSectorCount = 128 * 1024

	// DefaultRootDirHint is the initial directory-entry capacity hint used
	// when formatting the root directory.
	DefaultRootDirHint = 16
)

// Default returns a Config populated with the package defaults; BindFlags'
// pflag defaults should always agree with this function.
func Default() Config {
	return Config{
		AppName: "blockfsctl",
		Volume: VolumeConfig{
			SectorCount:     DefaultSectorCount,
			CacheMaxSectors: DefaultCacheMaxSectors,
			RootDirHint:     DefaultRootDirHint,
		},
		Logging: LoggingConfig{
			Severity: SeverityInfo,
			Format:   FormatText,
		},
	}
}
