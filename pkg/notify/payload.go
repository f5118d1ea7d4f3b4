package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

// Job types carried on the wire. Never rename these; producers and workers from
// different releases must agree on them.
const (
	TypeBookingConfirmation queue.JobType = "booking_confirmation"
	TypeBookingCancelled    queue.JobType = "booking_cancelled"
	TypeWelcome             queue.JobType = "welcome"
	TypeOrgInvite           queue.JobType = "org_invite"
)

// Payload is a notification that can be enqueued. The set of implementations is
// closed: only the types in this package satisfy it.
type Payload interface {
	JobType() queue.JobType
	Validate() error
	sealed()
}

// BookingConfirmation is sent when a booking is created.
type BookingConfirmation struct {
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitzero"`
	Name      string    `json:"name,omitempty"`
	Location  string    `json:"location,omitempty"`
	Organizer string    `json:"organizer,omitempty"`
	ManageURL string    `json:"manage_url,omitempty"`
}

func (BookingConfirmation) JobType() queue.JobType { return TypeBookingConfirmation }
func (BookingConfirmation) sealed()                {}

// Validate checks the fields the template needs.
func (p BookingConfirmation) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: booking title is required", ErrInvalidPayload)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: booking start is required", ErrInvalidPayload)
	}
	if !p.End.IsZero() && p.End.Before(p.Start) {
		return fmt.Errorf("%w: booking ends before it starts", ErrInvalidPayload)
	}
	return nil
}

// BookingCancelled is sent when a booking is cancelled.
type BookingCancelled struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	Name        string    `json:"name,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CancelledBy string    `json:"cancelled_by,omitempty"`
	RebookURL   string    `json:"rebook_url,omitempty"`
}

func (BookingCancelled) JobType() queue.JobType { return TypeBookingCancelled }
func (BookingCancelled) sealed()                {}

// Validate checks the fields the template needs.
func (p BookingCancelled) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: booking title is required", ErrInvalidPayload)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: booking start is required", ErrInvalidPayload)
	}
	return nil
}

// Welcome is sent when an account is created.
type Welcome struct {
	Name         string `json:"name,omitempty"`
	DashboardURL string `json:"dashboard_url,omitempty"`
}

func (Welcome) JobType() queue.JobType { return TypeWelcome }
func (Welcome) sealed()                {}

// Validate always succeeds; every field is optional.
func (Welcome) Validate() error { return nil }

// OrgInvite is sent when a member is added to an organisation.
type OrgInvite struct {
	OrgName   string    `json:"org_name"`
	Inviter   string    `json:"inviter,omitempty"`
	Role      string    `json:"role,omitempty"`
	AcceptURL string    `json:"accept_url"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (OrgInvite) JobType() queue.JobType { return TypeOrgInvite }
func (OrgInvite) sealed()                {}

// Validate checks the fields the template needs.
func (p OrgInvite) Validate() error {
	if p.OrgName == "" {
		return fmt.Errorf("%w: organisation name is required", ErrInvalidPayload)
	}
	if p.AcceptURL == "" {
		return fmt.Errorf("%w: accept URL is required", ErrInvalidPayload)
	}
	return nil
}

// Decode turns a stored envelope payload back into its typed form.
// Unknown fields are ignored so older workers accept newer producers' payloads.
func Decode(jobType queue.JobType, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch jobType {
	case TypeBookingConfirmation:
		p = &BookingConfirmation{}
	case TypeBookingCancelled:
		p = &BookingCancelled{}
	case TypeWelcome:
		p = &Welcome{}
	case TypeOrgInvite:
		p = &OrgInvite{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, jobType, err)
	}
	p = deref(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// deref returns the value form so callers can type-switch on value types only.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *BookingConfirmation:
		return *v
	case *BookingCancelled:
		return *v
	case *Welcome:
		return *v
	case *OrgInvite:
		return *v
	}
	return p
}
