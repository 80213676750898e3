package purchase

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const tokenPrefix = "gb"

// TokenSource mints invoice payload tokens of the form
// gb:<buyer>:<counter>:<random>. The counter is process-monotonic and the
// random part is a v4 UUID, so tokens never repeat within a process and
// collide across processes with negligible probability.
type TokenSource struct {
	counter atomic.Uint64
}

func (s *TokenSource) Next(buyerID int64) string {
	n := s.counter.Add(1)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s:%d:%d:%s", tokenPrefix, buyerID, n, random)
}

// tokenBuyer extracts the buyer id from a token minted by TokenSource.
func tokenBuyer(token string) (int64, bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 || parts[0] != tokenPrefix || parts[3] == "" {
		return 0, false
	}
	buyerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	if _, err := strconv.ParseUint(parts[2], 10, 64); err != nil {
		return 0, false
	}
	return buyerID, true
}

// recognized reports whether token was minted for buyerID.
func recognized(token string, buyerID int64) bool {
	owner, ok := tokenBuyer(token)
	return ok && owner == buyerID
}
