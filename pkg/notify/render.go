package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/schedkit/pkg/notify/templates"
	"github.com/dmitrymomot/schedkit/pkg/transport"
)

const (
	whenLayout    = "Monday, January 2, 2006 at 15:04 UTC"
	subjectLayout = "Jan 2, 15:04 UTC"
	dateLayout    = "January 2, 2006"
)

// Renderer turns payloads into messages. It is pure: no clocks, no I/O, and
// every time is shown in UTC, so the same payload always renders the same bytes.
type Renderer struct {
	product string
}

// NewRenderer creates a renderer; product names the service in greetings.
func NewRenderer(product string) Renderer {
	if product == "" {
		product = "Schedkit"
	}
	return Renderer{product: product}
}

// Render builds the subject and body for p.
func (r Renderer) Render(ctx context.Context, p Payload) (transport.Message, error) {
	if p == nil {
		return transport.Message{}, fmt.Errorf("%w: payload is nil", ErrInvalidPayload)
	}
	p = deref(p)

	var (
		subject string
		body    templ.Component
	)
	switch v := p.(type) {
	case BookingConfirmation:
		subject = fmt.Sprintf("Booking confirmed: %s on %s", v.Title, v.Start.UTC().Format(subjectLayout))
		body = templates.BookingConfirmation(templates.BookingConfirmationView{
			Name:      v.Name,
			Title:     v.Title,
			When:      v.Start.UTC().Format(whenLayout),
			Duration:  duration(v.Start, v.End),
			Location:  v.Location,
			Organizer: v.Organizer,
			ManageURL: v.ManageURL,
		})
	case BookingCancelled:
		subject = fmt.Sprintf("Booking cancelled: %s on %s", v.Title, v.Start.UTC().Format(subjectLayout))
		body = templates.BookingCancelled(templates.BookingCancelledView{
			Name:        v.Name,
			Title:       v.Title,
			When:        v.Start.UTC().Format(whenLayout),
			Reason:      v.Reason,
			CancelledBy: v.CancelledBy,
			RebookURL:   v.RebookURL,
		})
	case Welcome:
		subject = "Welcome to " + r.product
		body = templates.Welcome(templates.WelcomeView{
			Name:         v.Name,
			Product:      r.product,
			DashboardURL: v.DashboardURL,
		})
	case OrgInvite:
		subject = fmt.Sprintf("You're invited to join %s on %s", templates.DisplayName(v.OrgName), r.product)
		view := templates.OrgInviteView{
			OrgName:   v.OrgName,
			Inviter:   v.Inviter,
			Role:      v.Role,
			AcceptURL: v.AcceptURL,
		}
		if !v.ExpiresAt.IsZero() {
			view.ExpiresAt = v.ExpiresAt.UTC().Format(dateLayout)
		}
		body = templates.OrgInvite(view)
	default:
		return transport.Message{}, fmt.Errorf("%w: %T", ErrUnknownJobType, p)
	}

	html, err := templates.Render(ctx, body)
	if err != nil {
		return transport.Message{}, errors.Join(ErrRenderFailed, err)
	}

	return transport.Message{
		Subject: subject,
		Body:    html,
		Tag:     string(p.JobType()),
	}, nil
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return ""
	}
	d := end.Sub(start).Round(time.Minute)
	h, m := int(d.Hours()), int(d.Minutes())%60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%d h", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%d min", m))
	}
	return strings.Join(parts, " ")
}
