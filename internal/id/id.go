package id

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/kasboek/internal/period"
)

// New returns a random id for a root allocation, its journal entry, or a
// bank account.
func New() string {
	return uuid.NewString()
}

// ChildID returns the deterministic id of the split counterpart of parentID
// in period p: "<parentID>.<p>".
func ChildID(parentID string, p period.Period) string {
	return parentID + "." + string(p)
}

// SplitChildID parses a child id into parent id and period.
func SplitChildID(childID string) (parentID string, p period.Period, err error) {
	i := strings.LastIndex(childID, ".")
	if i <= 0 {
		return "", "", fmt.Errorf("invalid child ID format: %q", childID)
	}
	p, err = period.Parse(childID[i+1:])
	if err != nil {
		return "", "", fmt.Errorf("invalid period in child ID %q: %w", childID, err)
	}
	return childID[:i], p, nil
}

// IsChildID reports whether s has the shape of a child id.
func IsChildID(s string) bool {
	_, _, err := SplitChildID(s)
	return err == nil
}

// StatementEntryID returns an id like "NL91BANK0417164300-2025-01-31-3f9a1c2b7e"
// for importers whose source carries no reference of its own. The suffix
// hashes fields, the entry's content, so the id does not depend on the
// entry's position in an export. occurrence tells apart identical entries of
// one day; the first has none and later ones get "-2", "-3" and so on.
func StatementEntryID(account string, date time.Time, occurrence int, fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	out := fmt.Sprintf("%s-%s-%s", account, date.Format("2006-01-02"), hex.EncodeToString(sum[:])[:10])
	if occurrence > 1 {
		out += "-" + strconv.Itoa(occurrence)
	}
	return out
}
