/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logx provides the structured JSON logging interface shared by every
// bowbend component. It wraps zerolog rather than exposing it directly so
// callers can supply their own implementation (or NewTestLogger) without the
// rest of the module depending on zerolog's concrete types.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

//go:generate mockgen -destination=mock_logx.go -package=logx github.com/carverauto/bowbend/internal/logx Logger

// Logger is the structured logging contract used throughout bowbend.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) Logger
	SetLevel(level zerolog.Level)
}

// Config controls how New builds a Logger.
type Config struct {
	Level  string
	Debug  bool
	Output io.Writer
}

// DefaultConfig returns the configuration used when a caller passes no Logger
// to scanner.StartScan: info level, writing to stderr so it never interleaves
// with a caller's own stdout output.
func DefaultConfig() Config {
	return Config{Level: "info", Output: os.Stderr}
}

type zlog struct {
	logger zerolog.Logger
}

// New builds a Logger from Config. An empty Output defaults to os.Stderr.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel

	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	return &zlog{logger: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

func (z *zlog) Trace() *zerolog.Event { return z.logger.Trace() }
func (z *zlog) Debug() *zerolog.Event { return z.logger.Debug() }
func (z *zlog) Info() *zerolog.Event  { return z.logger.Info() }
func (z *zlog) Warn() *zerolog.Event  { return z.logger.Warn() }
func (z *zlog) Error() *zerolog.Event { return z.logger.Error() }
func (z *zlog) With() zerolog.Context { return z.logger.With() }

func (z *zlog) WithComponent(component string) Logger {
	return &zlog{logger: z.logger.With().Str("component", component).Logger()}
}

func (z *zlog) SetLevel(level zerolog.Level) {
	z.logger = z.logger.Level(level)
}

// NewTestLogger returns a Logger that discards everything, matching the
// no-op pattern tests across the module use to avoid noisy output.
func NewTestLogger() Logger {
	return &zlog{logger: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}
