package tickets

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLength = 9

func newTicketID(now time.Time) string {
	return prefixedID("TKT", now)
}

func newValidationID(now time.Time) string {
	return prefixedID("VAL", now)
}

// prefixedID renders <prefix>-<unix ms>-<9 base36 chars>.
func prefixedID(prefix string, now time.Time) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomSuffix()
}

func randomSuffix() string {
	id := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(id[:8]), 36)
	if len(suffix) < suffixLength {
		suffix = strings.Repeat("0", suffixLength-len(suffix)) + suffix
	}
	return suffix[len(suffix)-suffixLength:]
}
