package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CampusNotify/internal/domain"
)

type fakeSource struct {
	listing []domain.Announcement
	err     error
}

func (f *fakeSource) FetchListing(_ context.Context, _ time.Time) ([]domain.Announcement, error) {
	return f.listing, f.err
}

type postRecorder struct {
	posts []string
}

func (p *postRecorder) Post(_ context.Context, post string) error {
	p.posts = append(p.posts, post)
	return nil
}

func newTestEngine(source *fakeSource, ledger *fakeLedger, recorder *sendRecorder, side *postRecorder, now time.Time) *Engine {
	// Pin ledger timestamps inside the run's detection window.
	ledger.clock = func() time.Time { return now }
	channel := channelFunc(func(_ context.Context, token, message string) error {
		recorder.record(token, message)
		return nil
	})

	deps := EngineDeps{
		Source:     source,
		Detector:   NewDetector(ledger, nil),
		Composer:   testComposer(),
		Dispatcher: NewDispatcher(ledger, channel, 1, 100, nil),
		Location:   time.UTC,
	}
	if side != nil {
		deps.SidePoster = side
	}
	return NewEngine(deps)
}

func TestRunRealtimeDeliversNewAnnouncements(t *testing.T) {
	t.Parallel()

	_, now := testWindow()
	ledger := newFakeLedger()
	ledger.seedRecipient("tok-first", domain.AudienceFirstYear, domain.CadenceRealtime)
	recorder := newSendRecorder()

	source := &fakeSource{listing: []domain.Announcement{
		{Title: "Orientation", Link: "https://example.ac.jp/news/o.html", Audience: domain.AudienceFirstYear, PublishedAt: now},
	}}

	engine := newTestEngine(source, ledger, recorder, nil, now)
	if err := engine.RunRealtime(context.Background(), now, false); err != nil {
		t.Fatalf("RunRealtime returned error: %v", err)
	}

	if got := recorder.messages("tok-first"); len(got) != 1 {
		t.Fatalf("expected one delivery, got %v", got)
	}
	if _, ok := ledger.entryByLink("https://example.ac.jp/news/o.html"); !ok {
		t.Fatal("announcement was not recorded in the ledger")
	}

	// The second run sees the same listing and stays quiet.
	if err := engine.RunRealtime(context.Background(), now, false); err != nil {
		t.Fatalf("second RunRealtime returned error: %v", err)
	}
	if got := recorder.messages("tok-first"); len(got) != 1 {
		t.Fatalf("unchanged listing must not be re-notified, got %v", got)
	}
}

func TestRunRealtimeSourceFailureIsNoOp(t *testing.T) {
	t.Parallel()

	_, now := testWindow()
	ledger := newFakeLedger()
	ledger.seedRecipient("tok", domain.AudienceAll, domain.CadenceRealtime)
	recorder := newSendRecorder()

	source := &fakeSource{err: errors.New("bulletin page down")}

	engine := newTestEngine(source, ledger, recorder, nil, now)
	if err := engine.RunRealtime(context.Background(), now, false); err != nil {
		t.Fatalf("source failure should end the run as a no-op, got %v", err)
	}
	if recorder.tokens() != 0 {
		t.Fatal("no delivery may happen when the source is unavailable")
	}
}

func TestRunRealtimeDetectionFailureAbortsBeforeDispatch(t *testing.T) {
	t.Parallel()

	_, now := testWindow()
	ledger := newFakeLedger()
	ledger.seedRecipient("tok", domain.AudienceAll, domain.CadenceRealtime)
	ledger.insertErr = errors.New("ledger down")
	recorder := newSendRecorder()

	source := &fakeSource{listing: []domain.Announcement{
		{Title: "A", Link: "https://example.ac.jp/news/a.html", Audience: domain.AudienceAll, PublishedAt: now},
	}}

	engine := newTestEngine(source, ledger, recorder, nil, now)
	if err := engine.RunRealtime(context.Background(), now, false); err == nil {
		t.Fatal("detection failure must abort the run")
	}
	if recorder.tokens() != 0 {
		t.Fatal("dispatch must not start after a detection failure")
	}
}

func TestRunRealtimeBroadcastsSidePosts(t *testing.T) {
	t.Parallel()

	_, now := testWindow()
	ledger := newFakeLedger()
	recorder := newSendRecorder()
	side := &postRecorder{}

	source := &fakeSource{listing: []domain.Announcement{
		{Title: "A", Link: "https://example.ac.jp/news/a.html", Audience: domain.AudienceSecondYear, PublishedAt: now},
	}}

	engine := newTestEngine(source, ledger, recorder, side, now)
	if err := engine.RunRealtime(context.Background(), now, true); err != nil {
		t.Fatalf("RunRealtime returned error: %v", err)
	}
	if len(side.posts) != 1 {
		t.Fatalf("expected one side post, got %v", side.posts)
	}
}

func TestRunDailyDeliversDigest(t *testing.T) {
	t.Parallel()

	_, now := testWindow()
	ledger := newFakeLedger()
	ledger.seedRecipient("tok-daily", domain.AudienceAll, domain.CadenceDaily)
	ledger.seedRecipient("tok-realtime", domain.AudienceAll, domain.CadenceRealtime)
	recorder := newSendRecorder()

	source := &fakeSource{listing: []domain.Announcement{
		{Title: "A", Link: "https://example.ac.jp/news/a.html", Audience: domain.AudienceAll, PublishedAt: now},
	}}

	engine := newTestEngine(source, ledger, recorder, nil, now)
	if err := engine.RunDaily(context.Background(), now); err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}

	if got := recorder.messages("tok-daily"); len(got) != 1 {
		t.Fatalf("daily recipient should receive the digest, got %v", got)
	}
	if got := recorder.messages("tok-realtime"); len(got) != 0 {
		t.Fatalf("realtime recipient must not receive the daily digest, got %v", got)
	}
	// Daily runs never touch the announcement ledger.
	if _, ok := ledger.entryByLink("https://example.ac.jp/news/a.html"); ok {
		t.Fatal("daily run must not record ledger entries")
	}
}

func TestRunDailyEmptyListingIsNoOp(t *testing.T) {
	t.Parallel()

	_, now := testWindow()
	ledger := newFakeLedger()
	ledger.seedRecipient("tok-daily", domain.AudienceAll, domain.CadenceDaily)
	recorder := newSendRecorder()

	engine := newTestEngine(&fakeSource{}, ledger, recorder, nil, now)
	if err := engine.RunDaily(context.Background(), now); err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if recorder.tokens() != 0 {
		t.Fatal("empty listing must not trigger delivery")
	}
}
