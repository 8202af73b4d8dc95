package roomlog

import (
	"sort"
	"strings"
)

const keySeparator = "_"

// RoomKey is the deterministic chat room key of two participants: both ids sorted
// lexicographically and joined with "_". RoomKey(a, b) == RoomKey(b, a).
func RoomKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, keySeparator)
}

// Participants splits a chat room key back into its two distinct ids.
func Participants(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, keySeparator)
	if !ok || a == "" || b == "" || strings.Contains(b, keySeparator) || a >= b {
		return "", "", false
	}
	return a, b, true
}

// IsParticipant reports whether userID is one of the two ids in key.
func IsParticipant(key, userID string) bool {
	a, b, ok := Participants(key)
	return ok && (userID == a || userID == b)
}
