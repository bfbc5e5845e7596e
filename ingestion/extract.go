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


package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// OCRService extracts text from scanned or binary documents. PDF parsing
// happens outside this module; implementations typically call a hosted OCR
// endpoint.
type OCRService interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Section is one titled block of a dashboard-sync payload.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// sectionsPayload is the JSON wire format pushed by the dashboard.
type sectionsPayload struct {
	Sections []Section `json:"sections"`
}

// extract resolves a request's raw input into plain text according to its
// source type. All failures wrap ErrExtraction so callers can tell "the
// source was unreadable" apart from downstream embedding or store failures.
func (p *Pipeline) extract(ctx context.Context, req IngestRequest) (string, error) {
	switch req.SourceType {
	case "", "text":
		return normalizeWhitespace(req.Content), nil
	case "json":
		text, err := extractSections([]byte(req.Content))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return text, nil
	case "url":
		text, err := p.fetchURL(ctx, req.URL)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return text, nil
	case "pdf":
		if p.ocr == nil {
			return "", fmt.Errorf("%w: %w", ErrExtraction, ErrOCRRequired)
		}
		text, err := p.ocr.ExtractText(ctx, req.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return normalizeWhitespace(text), nil
	default:
		return "", fmt.Errorf("%w: %w: %s", ErrExtraction, ErrUnsupportedSource, req.SourceType)
	}
}

// extractSections synthesizes a flat document from a titled-sections payload.
func extractSections(data []byte) (string, error) {
	var payload sectionsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	if len(payload.Sections) == 0 {
		return "", fmt.Errorf("payload has no sections")
	}

	var b strings.Builder
	for i, section := range payload.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if section.Title != "" {
			b.WriteString("## ")
			b.WriteString(section.Title)
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(section.Content))
	}
	return b.String(), nil
}

const maxFetchBytes = 4 << 20

func (p *Pipeline) fetchURL(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", err
	}

	return StripHTML(string(body)), nil
}

// Pre-compiled regular expressions for HTML stripping.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>|<br\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts an HTML page to plain text: scripts, styles, and
// comments removed, block boundaries turned into newlines, entities decoded.
func StripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")
	content = blockElements.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, " ")
	content = html.UnescapeString(content)
	return normalizeWhitespace(content)
}

func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
