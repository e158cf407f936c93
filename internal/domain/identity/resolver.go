// Package identity reconciles the participant shapes a thread record may carry
// on disk into one canonical, sorted pair of user ids.
//
// Three shapes exist, checked in this order:
//
//	participants      current list
//	participantsIds   older list
//	buyerId/sellerId  original singular fields, both required
package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"snackswap/internal/domain/entity"
)

var (
	threadNamespace = uuid.MustParse("5b0c3f6e-4a0e-4d43-9a55-2f1f5c0d7a11")
	offerNamespace  = uuid.MustParse("c8a4f0d2-7e61-4b6f-8a1c-93b2e4d5f607")
)

// RefID extracts an id from a reference that may be a bare id, a populated
// object ({"_id": ...} or {"id": ...}) or anything printable as an id.
// It returns "" when no id can be found.
func RefID(ref interface{}) string {
	switch v := ref.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case map[string]interface{}:
		for _, key := range []string{"_id", "id", "ID"} {
			if id := RefID(v[key]); id != "" {
				return id
			}
		}
		return ""
	case map[string]string:
		for _, key := range []string{"_id", "id", "ID"} {
			if id := strings.TrimSpace(v[key]); id != "" {
				return id
			}
		}
		return ""
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

// ValidID reports whether id can address a stored record: non-empty, at most
// 128 bytes, with no whitespace or path separators.
func ValidID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, "/ \t\r\n") && id != "." && id != ".."
}

// RefIDs maps RefID over a list, dropping entries without an id.
func RefIDs(refs []interface{}) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id := RefID(ref); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Pair returns a and b in canonical (string-sorted) order.
func Pair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

// Resolve returns the sorted, de-duplicated member ids of t.
func Resolve(t *entity.Thread) []string {
	if t == nil {
		return nil
	}

	var raw []string
	switch {
	case len(t.Participants) > 0:
		raw = t.Participants
	case len(t.LegacyParticipantIDs) > 0:
		raw = t.LegacyParticipantIDs
	case t.LegacyBuyerID != "" && t.LegacySellerID != "":
		raw = []string{t.LegacyBuyerID, t.LegacySellerID}
	}

	seen := make(map[string]struct{}, len(raw))
	members := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

func IsMember(t *entity.Thread, userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range Resolve(t) {
		if id == userID {
			return true
		}
	}
	return false
}

// Normalize rewrites a legacy-shaped thread to the current shape in memory and
// reports whether anything changed. Persisting the result is up to the caller.
func Normalize(t *entity.Thread) bool {
	if t == nil || len(t.Participants) > 0 {
		return false
	}
	members := Resolve(t)
	if len(members) == 0 {
		return false
	}
	t.Participants = members
	t.LegacyParticipantIDs = nil
	return true
}

// ThreadID is the deterministic id of the thread for listingID and pair. Two
// concurrent creators compute the same id, so the store's create-if-absent
// settles the race.
func ThreadID(listingID string, pair [2]string) string {
	return uuid.NewSHA1(threadNamespace, []byte(listingID+"\x00"+pair[0]+"\x00"+pair[1])).String()
}

// PendingOfferKey identifies the single pending offer slot for a sender on a
// listing.
func PendingOfferKey(listingID, senderID string) string {
	return uuid.NewSHA1(offerNamespace, []byte(listingID+"\x00"+senderID)).String()
}

// ReviewID is the deterministic id of the one review reviewer may leave for
// reviewee on listingID.
func ReviewID(reviewerID, revieweeID, listingID string) string {
	return uuid.NewSHA1(offerNamespace, []byte("review\x00"+reviewerID+"\x00"+revieweeID+"\x00"+listingID)).String()
}
