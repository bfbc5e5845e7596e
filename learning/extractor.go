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


package learning

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aurosystems/ragkit/core"
)

// Chunk types produced by candidate extraction.
const (
	ChunkTypeObjection = "objection_handling"
	ChunkTypeQAPair    = "qa_pair"
	ChunkTypeClosing   = "closing_phrase"
)

// Minimum message lengths for a generic question/answer pair. Shorter
// exchanges ("ok", "thanks") carry no reusable knowledge.
const (
	minQuestionLen = 10
	minAnswerLen   = 20
)

// Candidate is one extractable piece of conversational knowledge.
type Candidate struct {
	Content   string
	ChunkType string
	Topic     string
}

var (
	objectionPattern = regexp.MustCompile(`(?i)too expensive|not interested|maybe later|call me back|not now|think about it`)
	closingPattern   = regexp.MustCompile(`(?i)book a viewing|schedule|confirm|set up a time|when would you like|tomorrow|this week`)
)

// ExtractCandidates walks a conversation pairwise and collects learnable
// exchanges.
//
// For each adjacent (lead, assistant) pair: an objection-lexicon match on the
// lead message yields an objection_handling candidate; otherwise, if both
// sides clear the length gates, the pair yields a qa_pair. Independently,
// when the conversation converted, assistant messages matching the closing
// lexicon yield closing_phrase candidates on their own. The closing pass
// covers every assistant message, including ones the pairwise walk skips
// for sitting next to a system message; a winning phrase is worth keeping
// no matter what preceded it. System-authored messages never become
// candidates themselves.
func ExtractCandidates(messages []core.Message, outcome core.Outcome) []Candidate {
	var candidates []Candidate

	for i := 0; i+1 < len(messages); i++ {
		q, a := messages[i], messages[i+1]
		if q.Speaker != core.SpeakerLead || a.Speaker != core.SpeakerAssistant {
			continue
		}

		question := strings.TrimSpace(q.Content)
		answer := strings.TrimSpace(a.Content)

		switch {
		case objectionPattern.MatchString(question):
			candidates = append(candidates, Candidate{
				Content:   fmt.Sprintf("OBJECTION: %q\nRESPONSE: %q", question, answer),
				ChunkType: ChunkTypeObjection,
				Topic:     ClassifyTopic(question + " " + answer),
			})
		case len(question) >= minQuestionLen && len(answer) >= minAnswerLen:
			candidates = append(candidates, Candidate{
				Content:   fmt.Sprintf("Q: %q\nA: %q", question, answer),
				ChunkType: ChunkTypeQAPair,
				Topic:     ClassifyTopic(question + " " + answer),
			})
		}
	}

	if outcome == core.OutcomeBookingConfirmed {
		for _, m := range messages {
			if m.Speaker != core.SpeakerAssistant {
				continue
			}
			content := strings.TrimSpace(m.Content)
			if closingPattern.MatchString(content) {
				candidates = append(candidates, Candidate{
					Content:   fmt.Sprintf("SUCCESSFUL CLOSING: %q", content),
					ChunkType: ChunkTypeClosing,
					Topic:     TopicBooking,
				})
			}
		}
	}

	return candidates
}
