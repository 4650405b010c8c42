/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package feed supplies decoded pool events to the ingestion loop.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"aave-ledger-go/internal/models"

	"go.uber.org/zap"
)

// ErrMalformedRecord is returned for a feed line that cannot be decoded into an event
var ErrMalformedRecord = errors.New("malformed feed record")

// Source yields events in delivery order and returns io.EOF once exhausted
type Source interface {
	Next(ctx context.Context) (models.Event, error)
}

// JSONLines reads one JSON encoded event per line
type JSONLines struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

func NewJSONLines(r io.Reader) *JSONLines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLines{scanner: scanner}
}

// Open reads the feed stored at path
func Open(path string) (*JSONLines, error) {
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed %s: %w", path, err)
	}

	zap.L().Info("Reading event feed", zap.String("file", path))
	source := NewJSONLines(file)
	source.closer = file
	return source, nil
}

func (j *JSONLines) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}

// Next decodes the next non-blank line
func (j *JSONLines) Next(ctx context.Context) (models.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read feed at line %d: %w", j.line+1, err)
			}
			return nil, io.EOF
		}
		j.line++

		data := bytes.TrimSpace(j.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		event, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", j.line, err)
		}
		return event, nil
	}
}

// Decode converts a single JSON record into a typed event
func Decode(data []byte) (models.Event, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return rec.event()
}

// SliceSource replays a fixed list of events
type SliceSource struct {
	events []models.Event
	pos    int
}

func NewSliceSource(events ...models.Event) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next(ctx context.Context) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	event := s.events[s.pos]
	s.pos++
	return event, nil
}
