package event

import (
	"encoding/json"
	"fmt"
)

// Platform event types carried in the event-type header.
const (
	TypePledgeCreate = "members:pledge:create"
	TypePledgeUpdate = "members:pledge:update"
	TypePledgeDelete = "members:pledge:delete"
)

const statusActivePatron = "active_patron"

// Reason classifies a normalization failure.
type Reason string

const (
	// MalformedPayload means the body was not parseable as the platform's
	// wire format, or lacked the member/user structure entirely.
	MalformedPayload Reason = "malformed_payload"
	// MissingUsername means a create event arrived for a user whose profile
	// carried no username, so the record cannot be keyed.
	MissingUsername Reason = "missing_username"
)

// NormalizationError reports why a delivery could not be normalized. Retrying
// the delivery cannot fix it; callers drop the event after logging.
type NormalizationError struct {
	Reason Reason
	Detail string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize event: %s (%s)", e.Reason, e.Detail)
}

// payload mirrors the slice of the platform's JSON:API envelope we consume.
type payload struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			PatronStatus string `json:"patron_status"`
		} `json:"attributes"`
		Relationships struct {
			User struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"user"`
		} `json:"relationships"`
	} `json:"data"`
	Included []struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			FullName          string `json:"full_name"`
			SocialConnections struct {
				Patreon struct {
					UserName string `json:"user_name"`
				} `json:"patreon"`
			} `json:"social_connections"`
		} `json:"attributes"`
	} `json:"included"`
}

// Normalize parses one delivery into a PatronEvent, dispatching on the
// event-type header. Unrecognized event types normalize to Ignored rather
// than an error: the platform sends event kinds we never subscribed to, and
// the right response is a 200 with no action.
//
// Update events carry the member's patron_status: an active patron is an
// upsert, everything else (declined, former) is a removal. Delete events may
// lack a username because profiles change; the reconciler falls back to
// matching by user id in that case.
func Normalize(eventType string, body []byte) (*PatronEvent, error) {
	switch eventType {
	case TypePledgeCreate, TypePledgeUpdate, TypePledgeDelete:
	default:
		return &PatronEvent{Kind: Ignored, Raw: body}, nil
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &NormalizationError{Reason: MalformedPayload, Detail: err.Error()}
	}

	userID := p.Data.Relationships.User.Data.ID
	if userID == "" {
		return nil, &NormalizationError{Reason: MalformedPayload, Detail: "no user id in member relationships"}
	}

	var username, fullName string
	for _, inc := range p.Included {
		if inc.Type == "user" && inc.ID == userID {
			username = inc.Attributes.SocialConnections.Patreon.UserName
			fullName = inc.Attributes.FullName
			break
		}
	}

	ev := &PatronEvent{
		Username: username,
		UserID:   userID,
		FullName: fullName,
		Raw:      body,
	}

	switch eventType {
	case TypePledgeCreate:
		ev.Kind = PledgeCreated
	case TypePledgeUpdate:
		if p.Data.Attributes.PatronStatus == statusActivePatron {
			ev.Kind = PledgeCreated
		} else {
			ev.Kind = PledgeDeleted
		}
	case TypePledgeDelete:
		ev.Kind = PledgeDeleted
	}

	if ev.Kind == PledgeCreated && username == "" {
		return nil, &NormalizationError{Reason: MissingUsername, Detail: "user " + userID + " has no username in included data"}
	}

	return ev, nil
}
