package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// EntryLine is the hashed projection of one entry.
type EntryLine struct {
	AccountID uuid.UUID
	Direction enums.EntryDirection
	Amount    decimal.Decimal
}

// ComputeEntryHash fingerprints a posting so stored rows can be verified later.
// Lines are hashed in (account, direction, amount) order, independent of input order.
func ComputeEntryHash(idempotencyKey string, referenceType enums.ReferenceType, referenceID string, lines []EntryLine) string {
	sorted := make([]EntryLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := bytes.Compare(sorted[i].AccountID[:], sorted[j].AccountID[:]); c != 0 {
			return c < 0
		}
		if sorted[i].Direction != sorted[j].Direction {
			return sorted[i].Direction < sorted[j].Direction
		}
		return sorted[i].Amount.LessThan(sorted[j].Amount)
	})

	var b strings.Builder
	b.WriteString(idempotencyKey)
	b.WriteByte('|')
	b.WriteString(string(referenceType))
	b.WriteByte('|')
	b.WriteString(referenceID)
	for _, line := range sorted {
		b.WriteByte('\n')
		b.WriteString(line.AccountID.String())
		b.WriteByte('|')
		b.WriteString(string(line.Direction))
		b.WriteByte('|')
		b.WriteString(line.Amount.StringFixed(4))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
