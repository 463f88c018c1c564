// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"github.com/sirupsen/logrus"

	"github.com/shipit-project/shipit/model"
)

var _ model.Logger = (*LogrusLogger)(nil)

// LogrusLogger adapts a logrus entry to the model.Logger interface for
// embedders that already use logrus
type LogrusLogger struct {
	log *logrus.Entry
}

func (s *LogrusLogger) genFields(args ...any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

func (s *LogrusLogger) Debug(msg string, args ...any) {
	s.log.WithFields(s.genFields(args...)).Debug(msg)
}

func (s *LogrusLogger) Info(msg string, args ...any) {
	s.log.WithFields(s.genFields(args...)).Info(msg)
}

func (s *LogrusLogger) Warn(msg string, args ...any) {
	s.log.WithFields(s.genFields(args...)).Warn(msg)
}

func (s *LogrusLogger) Error(msg string, args ...any) {
	s.log.WithFields(s.genFields(args...)).Error(msg)
}

func (s *LogrusLogger) With(args ...any) model.Logger {
	return NewLogrusLogger(s.log.WithFields(s.genFields(args...)))
}

func NewLogrusLogger(log *logrus.Entry) *LogrusLogger {
	return &LogrusLogger{log: log}
}
