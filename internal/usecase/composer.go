package usecase

import (
	"strings"

	"CampusNotify/internal/domain"
)

// Composer renders per-audience message bodies from detected changes. Given
// the same ChangeSet it is deterministic, and items keep their encounter
// order; nothing is re-sorted.
type Composer struct {
	footer        string
	firstYearTag  string
	secondYearTag string
}

// NewComposer fixes the trailing footer (unsubscribe hint) and the hashtags
// used by side-channel posts.
func NewComposer(footer, firstYearTag, secondYearTag string) Composer {
	return Composer{footer: footer, firstYearTag: firstYearTag, secondYearTag: secondYearTag}
}

// Realtime composes one message per audience class from the run's ChangeSet.
// Audiences with no matching items are absent from the result.
//
// An audience-changed pair contributes to a target class only when the
// previously stored audience did not already cover that class and the current
// audience differs from it under strict equality, not the containment rule
// used for fresh items. The strictness is deliberate: it yields a notice for
// the classes an item moved away from, and widening it to containment would
// change who gets notified.
func (c Composer) Realtime(changes domain.ChangeSet, w domain.Window) domain.Messages {
	messages := domain.Messages{}
	for _, target := range domain.Audiences() {
		var b strings.Builder
		for _, item := range changes.FreshlyNew {
			if item.RelevantTo(target) && w.Contains(item.PublishedAt) {
				b.WriteString(item.Line())
				b.WriteByte('\n')
			}
		}
		for _, change := range changes.AudienceChanged {
			if change.Previous.Audience.RelevantTo(target) {
				continue
			}
			if change.Current.Audience == target {
				continue
			}
			if !w.Contains(change.Current.PublishedAt) {
				continue
			}
			b.WriteString(change.Current.Line())
			b.WriteByte('\n')
		}
		if b.Len() == 0 {
			continue
		}
		messages[target] = b.String() + c.footer
	}
	return messages
}

// Daily composes the whole-day digest per audience directly from the current
// listing, with no diffing: daily recipients get everything published inside
// the window that is relevant to their class.
func (c Composer) Daily(listing []domain.Announcement, w domain.Window) domain.Messages {
	messages := domain.Messages{}
	for _, target := range domain.Audiences() {
		var b strings.Builder
		for _, item := range listing {
			if item.RelevantTo(target) && w.Contains(item.PublishedAt) {
				b.WriteString(item.Line())
				b.WriteByte('\n')
			}
		}
		if b.Len() == 0 {
			continue
		}
		messages[target] = b.String() + c.footer
	}
	return messages
}

// SidePosts renders one hashtag-tagged post per new announcement, plus one
// per reclassified announcement that is no longer addressed to everyone.
func (c Composer) SidePosts(changes domain.ChangeSet, w domain.Window) []string {
	var posts []string
	for _, item := range changes.FreshlyNew {
		if w.Contains(item.PublishedAt) {
			posts = append(posts, item.Line()+"\n"+c.hashtags(item.Audience))
		}
	}
	for _, change := range changes.AudienceChanged {
		if change.Current.Audience == domain.AudienceAll {
			continue
		}
		if w.Contains(change.Current.PublishedAt) {
			posts = append(posts, change.Current.Line()+"\n"+c.hashtags(change.Current.Audience))
		}
	}
	return posts
}

func (c Composer) hashtags(a domain.Audience) string {
	switch a {
	case domain.AudienceFirstYear:
		return c.firstYearTag
	case domain.AudienceSecondYear:
		return c.secondYearTag
	default:
		return c.firstYearTag + " " + c.secondYearTag
	}
}
