package templates

import (
	"github.com/a-h/templ"
)

// BookingConfirmationView is the display data for a confirmed booking.
type BookingConfirmationView struct {
	Name      string
	Title     string
	When      string
	Duration  string
	Location  string
	Organizer string
	ManageURL string
}

// BookingConfirmation renders the booking confirmation email.
func BookingConfirmation(v BookingConfirmationView) templ.Component {
	return Layout("Booking confirmed: "+v.Title, v.Title+" on "+v.When, Stack(
		Paragraph("Hi "+DisplayName(v.Name)+","),
		Paragraph("Your booking is confirmed. Here are the details:"),
		Details(
			Row{Label: "What", Value: v.Title},
			Row{Label: "When", Value: v.When},
			Row{Label: "Duration", Value: v.Duration},
			Row{Label: "Where", Value: v.Location},
			Row{Label: "With", Value: v.Organizer},
		),
		Button(v.ManageURL, "Manage booking"),
	))
}

// BookingCancelledView is the display data for a cancelled booking.
type BookingCancelledView struct {
	Name        string
	Title       string
	When        string
	Reason      string
	CancelledBy string
	RebookURL   string
}

// BookingCancelled renders the cancellation notice.
func BookingCancelled(v BookingCancelledView) templ.Component {
	return Layout("Booking cancelled: "+v.Title, v.Title+" on "+v.When+" was cancelled", Stack(
		Paragraph("Hi "+DisplayName(v.Name)+","),
		Paragraph("The following booking has been cancelled:"),
		Details(
			Row{Label: "What", Value: v.Title},
			Row{Label: "When", Value: v.When},
			Row{Label: "Cancelled by", Value: v.CancelledBy},
			Row{Label: "Reason", Value: v.Reason},
		),
		Button(v.RebookURL, "Book another time"),
	))
}

// WelcomeView is the display data for a new account.
type WelcomeView struct {
	Name         string
	Product      string
	DashboardURL string
}

// Welcome renders the welcome email.
func Welcome(v WelcomeView) templ.Component {
	return Layout("Welcome to "+v.Product, "Your "+v.Product+" account is ready", Stack(
		Paragraph("Hi "+DisplayName(v.Name)+","),
		Paragraph("Thanks for signing up. Your account is ready, and you can start sharing your booking page right away."),
		Button(v.DashboardURL, "Open dashboard"),
	))
}

// OrgInviteView is the display data for an organisation invitation.
type OrgInviteView struct {
	OrgName   string
	Inviter   string
	Role      string
	AcceptURL string
	ExpiresAt string
}

// OrgInvite renders the invitation email.
func OrgInvite(v OrgInviteView) templ.Component {
	org := DisplayName(v.OrgName)
	return Layout("You're invited to join "+org, DisplayName(v.Inviter)+" invited you to "+org, Stack(
		Paragraph(DisplayName(v.Inviter)+" has invited you to join "+org+"."),
		Details(
			Row{Label: "Role", Value: v.Role},
			Row{Label: "Expires", Value: v.ExpiresAt},
		),
		Button(v.AcceptURL, "Accept invitation"),
	))
}
