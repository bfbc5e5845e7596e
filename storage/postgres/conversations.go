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


package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// ConversationSource reads closed lead conversations from the platform's
// leads and lead_messages tables.
type ConversationSource struct {
	db *sqlx.DB
}

var _ storage.ConversationSource = (*ConversationSource)(nil)

// NewConversationSource wraps an existing database handle.
func NewConversationSource(db *sqlx.DB) *ConversationSource {
	return &ConversationSource{db: db}
}

type leadRow struct {
	ID       string `db:"id"`
	ClientID string `db:"client_id"`
	FolderID string `db:"folder_id"`
	Status   string `db:"status"`
}

type messageRow struct {
	LeadID    string    `db:"lead_id"`
	Sender    string    `db:"sender"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// ListClosed returns conversations closed at or after since, with messages
// in chronological order.
func (c *ConversationSource) ListClosed(ctx context.Context, scope core.Scope, since time.Time) ([]core.Conversation, error) {
	if err := scope.Validate(); err != nil {
		return nil, storage.ErrScopeRequired
	}

	const leadQuery = `
		SELECT id, client_id, folder_id, status
		FROM leads
		WHERE client_id = $1
		  AND ($2 = '' OR folder_id = $2)
		  AND status IN ('booking_confirmed', 'qualified', 'dropped', 'closed')
		  AND closed_at >= $3
		ORDER BY closed_at ASC
	`
	var leads []leadRow
	if err := c.db.SelectContext(ctx, &leads, leadQuery, scope.ClientID, scope.FolderID, since); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}
	if len(leads) == 0 {
		return nil, nil
	}

	conversations := make([]core.Conversation, 0, len(leads))
	for _, lead := range leads {
		messages, err := c.leadMessages(ctx, lead.ID)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, core.Conversation{
			ID:       lead.ID,
			Scope:    core.Scope{ClientID: lead.ClientID, FolderID: lead.FolderID},
			Outcome:  outcomeFromStatus(lead.Status),
			Messages: messages,
		})
	}
	return conversations, nil
}

func (c *ConversationSource) leadMessages(ctx context.Context, leadID string) ([]core.Message, error) {
	const query = `
		SELECT lead_id, sender, content, created_at
		FROM lead_messages
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`
	var rows []messageRow
	if err := c.db.SelectContext(ctx, &rows, query, leadID); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrRead, err)
	}

	messages := make([]core.Message, len(rows))
	for i, row := range rows {
		messages[i] = core.Message{
			Speaker:   speakerFromSender(row.Sender),
			Content:   row.Content,
			Timestamp: row.CreatedAt,
		}
	}
	return messages, nil
}

func outcomeFromStatus(status string) core.Outcome {
	switch status {
	case "booking_confirmed":
		return core.OutcomeBookingConfirmed
	case "qualified":
		return core.OutcomeQualified
	case "dropped":
		return core.OutcomeDropped
	default:
		return core.OutcomeUnknown
	}
}

func speakerFromSender(sender string) core.Speaker {
	switch sender {
	case "lead", "user":
		return core.SpeakerLead
	case "assistant", "ai":
		return core.SpeakerAssistant
	default:
		return core.SpeakerSystem
	}
}
