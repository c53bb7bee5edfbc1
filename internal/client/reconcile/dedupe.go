package reconcile

import "github.com/Quaternijkon/betterfly/internal/models"

type sessionKey struct {
	eventID string
	start   int64
	end     int64
	ongoing bool
}

func keyOf(s models.Session) sessionKey {
	k := sessionKey{eventID: s.EventID, start: s.StartTime.UnixNano(), ongoing: s.EndTime == nil}
	if s.EndTime != nil {
		k.end = s.EndTime.UnixNano()
	}
	return k
}

// Deduplicate drops sessions sharing event id, start time and end time with an
// earlier one. It returns the kept sessions in their original order and the
// number removed.
func Deduplicate(sessions []models.Session) ([]models.Session, int) {
	seen := make(map[sessionKey]struct{}, len(sessions))
	kept := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		k := keyOf(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, s)
	}
	return kept, len(sessions) - len(kept)
}
