package crypto

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// InviteTokenPrefix marks registration tokens so they are recognisable in logs and URLs.
	InviteTokenPrefix = "inv"

	inviteSecretBytes = 24
)

var (
	ulidOnce    sync.Once
	ulidMu      sync.Mutex
	ulidEntropy *ulid.MonotonicEntropy
)

// NewULID returns a lowercase ULID for t drawn from a process-wide monotonic source,
// so IDs minted within the same millisecond still sort in creation order.
func NewULID(t time.Time) (string, error) {
	ulidOnce.Do(func() {
		ulidEntropy = ulid.Monotonic(rand.Reader, 0)
	})

	ulidMu.Lock()
	defer ulidMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), ulidEntropy)
	if err != nil {
		return "", fmt.Errorf("crypto: generate ulid: %w", err)
	}
	return strings.ToLower(id.String()), nil
}

// GenerateInviteToken builds an unguessable one-time registration token of the
// form inv_<ulid>_<secret>. The ULID orders tokens by issue time and the
// 24 byte secret carries the entropy.
func GenerateInviteToken(now time.Time) (string, error) {
	id, err := NewULID(now)
	if err != nil {
		return "", err
	}

	secret, err := GenerateToken(inviteSecretBytes)
	if err != nil {
		return "", fmt.Errorf("crypto: generate invite secret: %w", err)
	}

	return InviteTokenPrefix + "_" + id + "_" + secret, nil
}

// InviteTokenTime extracts the issue time embedded in an invite token.
// ok is false when the token is not in the expected format.
func InviteTokenTime(token string) (time.Time, bool) {
	parts := strings.SplitN(strings.TrimSpace(token), "_", 3)
	if len(parts) != 3 || parts[0] != InviteTokenPrefix {
		return time.Time{}, false
	}

	id, err := ulid.ParseStrict(strings.ToUpper(parts[1]))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(id.Time()), true
}
