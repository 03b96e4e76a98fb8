package domain

import (
	"fmt"
	"time"
)

// Audience classifies the intended readership of an announcement.
type Audience int

const (
	AudienceAll Audience = iota
	AudienceFirstYear
	AudienceSecondYear
)

// Audiences returns every audience class in composition order.
func Audiences() []Audience {
	return []Audience{AudienceAll, AudienceFirstYear, AudienceSecondYear}
}

// String renders the audience for logs and configuration.
func (a Audience) String() string {
	switch a {
	case AudienceFirstYear:
		return "first_year"
	case AudienceSecondYear:
		return "second_year"
	default:
		return "all"
	}
}

// ParseAudience maps a config/storage string back to an Audience.
func ParseAudience(value string) (Audience, error) {
	switch value {
	case "all":
		return AudienceAll, nil
	case "first_year":
		return AudienceFirstYear, nil
	case "second_year":
		return AudienceSecondYear, nil
	}
	return AudienceAll, fmt.Errorf("unknown audience %q", value)
}

// RelevantTo reports whether content tagged with audience a satisfies a query
// for target. AudienceAll is a wildcard on both sides: it satisfies any
// specific class, and a query for it is satisfied by any class.
func (a Audience) RelevantTo(target Audience) bool {
	if target == AudienceAll {
		return true
	}
	return a == target || a == AudienceAll
}

// Cadence is how often a recipient wants to be notified.
type Cadence string

const (
	CadenceDaily    Cadence = "daily"
	CadenceRealtime Cadence = "realtime"
)

// ParseCadence validates a storage/config cadence string.
func ParseCadence(value string) (Cadence, error) {
	switch Cadence(value) {
	case CadenceDaily:
		return CadenceDaily, nil
	case CadenceRealtime:
		return CadenceRealtime, nil
	}
	return "", fmt.Errorf("unknown cadence %q", value)
}

// Announcement is one bulletin entry as listed by the source page this run.
// Link is the identity key across runs; two announcements with the same link
// are the same announcement even if title or audience differ.
type Announcement struct {
	Title       string
	Link        string
	Audience    Audience
	PublishedAt time.Time
}

// RelevantTo applies the audience containment rule to this announcement.
func (a Announcement) RelevantTo(target Audience) bool {
	return a.Audience.RelevantTo(target)
}

// Line renders the one-line message representation of the announcement.
func (a Announcement) Line() string {
	return fmt.Sprintf("%s(%s)", a.Title, a.Link)
}
