package groups

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"devpair-be/internal/set"
)

var channelNamespace = uuid.MustParse("6f1c9a52-3d0e-4f7b-9a3e-2b8f5d1c7e40")

// ChannelIDFor derives a stable channel id for a create request. With an
// idempotency key the id depends only on creator and key; without one it
// depends on creator, name and member set, so a resubmitted request maps to
// the channel of the first attempt.
func ChannelIDFor(creator uint, name string, members set.Set[uint], idempotencyKey string) string {
	var seed string
	if idempotencyKey != "" {
		seed = fmt.Sprintf("%d|key|%s", creator, idempotencyKey)
	} else {
		ids := members.Sorted()
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			parts = append(parts, fmt.Sprint(id))
		}
		seed = fmt.Sprintf("%d|%s|%s", creator, name, strings.Join(parts, ","))
	}
	return "grp-" + uuid.NewSHA1(channelNamespace, []byte(seed)).String()
}
