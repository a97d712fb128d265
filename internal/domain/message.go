package domain

import "time"

// RawMessage is a scraped call message as stored by the ingestion
// collaborator. Corresponds to raw_messages table in PostgreSQL.
// The core engine only ever reads these rows.
type RawMessage struct {
	MessageID string         // PRIMARY KEY, Discord snowflake
	PostedAt  time.Time      // UTC, derived from the snowflake on first write
	Payload   map[string]any // raw message JSON (embeds, components, content)
}
