package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/notify/templates"
)

func TestRender_EscapesText(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), templates.Paragraph(`<script>alert("x")</script>`))
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestButton(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), templates.Button("https://app.example.com/b/1", "Manage"))
	require.NoError(t, err)
	assert.Contains(t, html, `href="https://app.example.com/b/1"`)

	html, err = templates.Render(context.Background(), templates.Button("javascript:alert(1)", "Manage"))
	require.NoError(t, err)
	assert.NotContains(t, html, "javascript:")

	html, err = templates.Render(context.Background(), templates.Button("", "Manage"))
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestDetails_SkipsEmptyValues(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), templates.Details(
		templates.Row{Label: "What", Value: "Standup"},
		templates.Row{Label: "Where", Value: ""},
	))
	require.NoError(t, err)
	assert.Contains(t, html, "Standup")
	assert.NotContains(t, html, "Where")
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada Lovelace", templates.DisplayName("  ada   lovelace "))
	assert.Equal(t, "there", templates.DisplayName(""))
}

func TestBookingConfirmation(t *testing.T) {
	t.Parallel()

	view := templates.BookingConfirmationView{
		Name:      "ada",
		Title:     "Standup",
		When:      "Wednesday, April 1, 2026 at 09:00 UTC",
		ManageURL: "https://app.example.com/b/1",
	}

	first, err := templates.Render(context.Background(), templates.BookingConfirmation(view))
	require.NoError(t, err)
	second, err := templates.Render(context.Background(), templates.BookingConfirmation(view))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "<title>Booking confirmed: Standup</title>")
	assert.Contains(t, first, "Hi Ada,")
	assert.Contains(t, first, "09:00 UTC")
}

func TestOtherEmails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	html, err := templates.Render(ctx, templates.BookingCancelled(templates.BookingCancelledView{
		Title: "Standup", When: "today", Reason: "Sick",
	}))
	require.NoError(t, err)
	assert.Contains(t, html, "Reason")
	assert.Contains(t, html, "Hi there,")

	html, err = templates.Render(ctx, templates.Welcome(templates.WelcomeView{Name: "bob", Product: "Schedkit"}))
	require.NoError(t, err)
	assert.Contains(t, html, "Welcome to Schedkit")

	html, err = templates.Render(ctx, templates.OrgInvite(templates.OrgInviteView{
		OrgName: "acme corp", Inviter: "carol", Role: "admin", AcceptURL: "https://app.example.com/i/x",
	}))
	require.NoError(t, err)
	assert.Contains(t, html, "Acme Corp")
	assert.Contains(t, html, "Carol has invited you")
}
