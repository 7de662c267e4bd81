package utils

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateParticipantID returns P_<base36 unix ms>_<6 random base36 chars>,
// upper-cased.
func GenerateParticipantID(now time.Time, r *rand.Rand) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[r.Intn(len(base36))]
	}
	id := "P_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + string(suffix)
	return strings.ToUpper(id)
}
