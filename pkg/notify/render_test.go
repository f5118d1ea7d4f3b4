package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/notify"
)

var standupStart = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestRenderer_IsDeterministic(t *testing.T) {
	t.Parallel()

	r := notify.NewRenderer("Schedkit")
	payloads := []notify.Payload{
		notify.BookingConfirmation{Title: "Standup", Start: standupStart, End: standupStart.Add(45 * time.Minute)},
		notify.BookingCancelled{Title: "Standup", Start: standupStart, Reason: "Holiday"},
		notify.Welcome{Name: "ada"},
		notify.OrgInvite{OrgName: "acme", AcceptURL: "https://app.example.com/i/1", ExpiresAt: standupStart},
	}

	for _, p := range payloads {
		t.Run(string(p.JobType()), func(t *testing.T) {
			t.Parallel()

			first, err := r.Render(context.Background(), p)
			require.NoError(t, err)
			second, err := r.Render(context.Background(), p)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, string(p.JobType()), first.Tag)
			assert.NotEmpty(t, first.Subject)
			assert.NotEmpty(t, first.Body)
		})
	}
}

func TestRenderer_BookingConfirmation(t *testing.T) {
	t.Parallel()

	// Same instant in another zone renders identically.
	local := standupStart.In(time.FixedZone("UTC+3", 3*60*60))

	msg, err := notify.NewRenderer("").Render(context.Background(), notify.BookingConfirmation{
		Title: "Standup",
		Start: local,
		End:   local.Add(90 * time.Minute),
		Name:  "ada lovelace",
	})
	require.NoError(t, err)

	assert.Equal(t, "Booking confirmed: Standup on Apr 1, 09:00 UTC", msg.Subject)
	assert.Contains(t, msg.Body, "Wednesday, April 1, 2026 at 09:00 UTC")
	assert.Contains(t, msg.Body, "1 h 30 min")
	assert.Contains(t, msg.Body, "Hi Ada Lovelace,")
}

func TestRenderer_PointerPayload(t *testing.T) {
	t.Parallel()

	r := notify.NewRenderer("Schedkit")
	byValue, err := r.Render(context.Background(), notify.Welcome{Name: "bob"})
	require.NoError(t, err)
	byPointer, err := r.Render(context.Background(), &notify.Welcome{Name: "bob"})
	require.NoError(t, err)

	assert.Equal(t, byValue, byPointer)
	assert.Equal(t, "Welcome to Schedkit", byValue.Subject)
}

func TestRenderer_NilPayload(t *testing.T) {
	t.Parallel()

	_, err := notify.NewRenderer("").Render(context.Background(), nil)
	assert.ErrorIs(t, err, notify.ErrInvalidPayload)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("known type", func(t *testing.T) {
		t.Parallel()

		p, err := notify.Decode(notify.TypeBookingConfirmation,
			json.RawMessage(`{"title":"Standup","start":"2026-04-01T09:00:00Z","added_in_v2":true}`))
		require.NoError(t, err)

		bc, ok := p.(notify.BookingConfirmation)
		require.True(t, ok)
		assert.Equal(t, "Standup", bc.Title)
		assert.True(t, bc.Start.Equal(standupStart))
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		_, err := notify.Decode("sms_reminder", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, notify.ErrUnknownJobType)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()

		_, err := notify.Decode(notify.TypeWelcome, json.RawMessage(`[1,2]`))
		assert.ErrorIs(t, err, notify.ErrInvalidPayload)
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		_, err := notify.Decode(notify.TypeOrgInvite, json.RawMessage(`{"org_name":"acme"}`))
		assert.ErrorIs(t, err, notify.ErrInvalidPayload)
	})
}

func TestPayload_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload notify.Payload
		valid   bool
	}{
		{"confirmation", notify.BookingConfirmation{Title: "x", Start: standupStart}, true},
		{"confirmation without title", notify.BookingConfirmation{Start: standupStart}, false},
		{"confirmation without start", notify.BookingConfirmation{Title: "x"}, false},
		{"confirmation ending early", notify.BookingConfirmation{Title: "x", Start: standupStart, End: standupStart.Add(-time.Hour)}, false},
		{"cancelled", notify.BookingCancelled{Title: "x", Start: standupStart}, true},
		{"cancelled without start", notify.BookingCancelled{Title: "x"}, false},
		{"welcome", notify.Welcome{}, true},
		{"invite", notify.OrgInvite{OrgName: "acme", AcceptURL: "https://x"}, true},
		{"invite without org", notify.OrgInvite{AcceptURL: "https://x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.payload.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, notify.ErrInvalidPayload)
		})
	}
}
