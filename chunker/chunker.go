// Copyright 2026 Auro Systems
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


// Package chunker splits normalized document text into overlapping
// fixed-size windows for embedding. Windows are character-based with no
// sentence or paragraph awareness; that trade-off keeps reassembly exact
// and the chunk geometry predictable.
package chunker

import (
	"errors"
	"iter"
	"strings"
)

const (
	// DefaultSize is the default window size in characters.
	DefaultSize = 800
	// DefaultOverlap is the default overlap between consecutive windows.
	DefaultOverlap = 100
)

var (
	// ErrWindowSize is returned when the window size is not positive.
	ErrWindowSize = errors.New("window size must be greater than 0")

	// ErrOverlap is returned when the overlap is negative or not smaller
	// than the window size.
	ErrOverlap = errors.New("overlap must be non-negative and smaller than the window size")
)

// Window is one chunk of the source text. Start is the window's offset in
// characters, not bytes.
type Window struct {
	Ordinal int
	Start   int
	Text    string
}

// Validate checks the window geometry.
func Validate(size, overlap int) error {
	if size <= 0 {
		return ErrWindowSize
	}
	if overlap < 0 || overlap >= size {
		return ErrOverlap
	}
	return nil
}

// Windows returns a lazy, restartable sequence of (ordinal, text) windows.
// Successive windows start every size-overlap characters, so consecutive
// windows share exactly overlap characters; the final window may be shorter
// than size. Text shorter than size yields a single window equal to the
// text. Invalid geometry yields no windows; validate first with Validate.
//
// Windowing is rune-based: a multi-byte rune is never split across a
// window boundary, so every window is valid UTF-8.
func Windows(text string, size, overlap int) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		if Validate(size, overlap) != nil {
			return
		}
		runes := []rune(text)
		step := size - overlap
		ordinal := 0
		for start := 0; ; start += step {
			end := start + size
			if end >= len(runes) {
				if !yield(ordinal, string(runes[start:])) {
					return
				}
				return
			}
			if !yield(ordinal, string(runes[start:end])) {
				return
			}
			ordinal++
		}
	}
}

// Split materializes all windows of text. It returns an error for invalid
// geometry and exactly one window for text shorter than size.
func Split(text string, size, overlap int) ([]Window, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	step := size - overlap
	windows := make([]Window, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := start + size
		if end >= len(runes) {
			windows = append(windows, Window{Ordinal: len(windows), Start: start, Text: string(runes[start:])})
			return windows, nil
		}
		windows = append(windows, Window{Ordinal: len(windows), Start: start, Text: string(runes[start:end])})
	}
}

// Reassemble reconstructs the original text by dropping the overlapping
// prefix of every window after the first. It is the inverse of Split for
// any valid (size, overlap) pair. The overlap is measured in runes, the
// same unit Split windows in.
func Reassemble(windows []Window, overlap int) string {
	var b strings.Builder
	for i, w := range windows {
		if i == 0 {
			b.WriteString(w.Text)
			continue
		}
		runes := []rune(w.Text)
		if overlap < len(runes) {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}
