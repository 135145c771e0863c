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

package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/coursefs/blockfs/cfg"
	"github.com/coursefs/blockfs/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func (s *LoggerTest) TestSeverityFiltering() {
	var buf bytes.Buffer
	logger.Init(cfg.LoggingConfig{Severity: cfg.SeverityWarning, Format: cfg.FormatText}, &buf)

	logger.Infof("should not appear")
	logger.Tracef("should not appear either")
	logger.Warnf("heads up: %d", 42)
	logger.Errorf("boom")

	out := buf.String()
	assert.NotContains(s.T(), out, "should not appear")
	assert.Contains(s.T(), out, "heads up: 42")
	assert.Contains(s.T(), out, "boom")
}

func (s *LoggerTest) TestTextFormatHasSeverityField() {
	var buf bytes.Buffer
	logger.Init(cfg.LoggingConfig{Severity: cfg.SeverityTrace, Format: cfg.FormatText}, &buf)

	logger.Tracef("tracing")
	logger.Errorf("erroring")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(s.T(), lines, 2) {
		assert.Contains(s.T(), lines[0], "severity=TRACE")
		assert.Contains(s.T(), lines[1], "severity=ERROR")
	}
}

func (s *LoggerTest) TestJSONFormat() {
	var buf bytes.Buffer
	logger.Init(cfg.LoggingConfig{Severity: cfg.SeverityInfo, Format: cfg.FormatJSON}, &buf)

	logger.Infof("hello %s", "world")

	out := buf.String()
	assert.Contains(s.T(), out, `"severity":"INFO"`)
	assert.Contains(s.T(), out, `"msg":"hello world"`)
}
