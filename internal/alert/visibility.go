package alert

import "crypto-alert-bot/internal/types"

// Visible reports whether caller may see entry from a chat. chatScope is nil
// in a private chat and the group chat id otherwise.
//
// In a private chat only the caller's private alerts are shown. In a group
// the caller sees their own alerts created either privately or in that
// group; other members' alerts stay hidden.
func Visible(entry types.AlertEntry, chatScope *int64, caller int64) bool {
	if entry.Owner != caller {
		return false
	}
	if chatScope == nil {
		return entry.Scope == nil
	}
	return entry.Scope == nil || *entry.Scope == *chatScope
}

func VisibleTo(entries []types.AlertEntry, chatScope *int64, caller int64) []types.AlertEntry {
	var out []types.AlertEntry
	for _, entry := range entries {
		if Visible(entry, chatScope, caller) {
			out = append(out, entry)
		}
	}
	return out
}
