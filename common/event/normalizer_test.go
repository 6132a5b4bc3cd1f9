package event

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberBody(userID, username, fullName, patronStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"data": {
			"type": "member",
			"attributes": {"patron_status": %q},
			"relationships": {"user": {"data": {"id": %q, "type": "user"}}}
		},
		"included": [{
			"type": "user",
			"id": %q,
			"attributes": {
				"full_name": %q,
				"social_connections": {"patreon": {"user_name": %q}}
			}
		}]
	}`, patronStatus, userID, userID, fullName, username))
}

func TestNormalizeCreate(t *testing.T) {
	ev, err := Normalize(TypePledgeCreate, memberBody("123", "alice", "Alice A", "active_patron"))
	require.NoError(t, err)

	assert.Equal(t, PledgeCreated, ev.Kind)
	assert.Equal(t, "alice", ev.Username)
	assert.Equal(t, "123", ev.UserID)
	assert.Equal(t, "Alice A", ev.FullName)
}

func TestNormalizeDelete(t *testing.T) {
	ev, err := Normalize(TypePledgeDelete, memberBody("123", "alice", "Alice A", "former_patron"))
	require.NoError(t, err)

	assert.Equal(t, PledgeDeleted, ev.Kind)
	assert.Equal(t, "alice", ev.Username)
}

func TestNormalizeUpdateDispatchesOnStatus(t *testing.T) {
	cases := []struct {
		status string
		want   Kind
	}{
		{"active_patron", PledgeCreated},
		{"declined_patron", PledgeDeleted},
		{"former_patron", PledgeDeleted},
		{"", PledgeDeleted},
	}
	for _, tc := range cases {
		t.Run("status="+tc.status, func(t *testing.T) {
			ev, err := Normalize(TypePledgeUpdate, memberBody("123", "alice", "Alice A", tc.status))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.Kind)
		})
	}
}

func TestNormalizeUnknownTypeIgnored(t *testing.T) {
	ev, err := Normalize("posts:publish", memberBody("123", "alice", "Alice A", "active_patron"))
	require.NoError(t, err)
	assert.Equal(t, Ignored, ev.Kind)
}

func TestNormalizeMalformedBody(t *testing.T) {
	_, err := Normalize(TypePledgeCreate, []byte("{not json"))

	var nerr *NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, MalformedPayload, nerr.Reason)
}

func TestNormalizeMissingUserID(t *testing.T) {
	_, err := Normalize(TypePledgeCreate, []byte(`{"data":{"type":"member"}}`))

	var nerr *NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, MalformedPayload, nerr.Reason)
}

func TestNormalizeCreateWithoutUsername(t *testing.T) {
	_, err := Normalize(TypePledgeCreate, memberBody("123", "", "Alice A", "active_patron"))

	var nerr *NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, MissingUsername, nerr.Reason)
}

func TestNormalizeDeleteWithoutUsername(t *testing.T) {
	// Profiles change; a delete for a user with no username is matched by id.
	ev, err := Normalize(TypePledgeDelete, memberBody("123", "", "Alice A", "former_patron"))
	require.NoError(t, err)

	assert.Equal(t, PledgeDeleted, ev.Kind)
	assert.Empty(t, ev.Username)
	assert.Equal(t, "123", ev.UserID)
}

func TestNormalizeIncludedMismatchedUser(t *testing.T) {
	// The included array may carry other resources; only the matching user
	// record contributes a username.
	body := []byte(`{
		"data": {
			"type": "member",
			"relationships": {"user": {"data": {"id": "123"}}}
		},
		"included": [{
			"type": "user",
			"id": "999",
			"attributes": {"social_connections": {"patreon": {"user_name": "bob"}}}
		}]
	}`)
	_, err := Normalize(TypePledgeCreate, body)

	var nerr *NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, MissingUsername, nerr.Reason)
}
