package project

import (
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/google/uuid"
)

// RuleEntry is a rule tracked by a project, with a stable ID.
type RuleEntry struct {
	ID string `json:"id"`
	rules.Rule
	AddedAt time.Time `json:"added_at"`
}

func newEntry(r rules.Rule) *RuleEntry {
	return &RuleEntry{ID: uuid.NewString(), Rule: r, AddedAt: time.Now()}
}
