package poll

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type mockConfig struct {
	types map[int64]map[string]*PollType
}

func (m *mockConfig) Lookup(groupID int64, command string) *PollType {
	return m.types[groupID][command]
}

func (m *mockConfig) Rules() []BoundRule {
	var rules []BoundRule
	for groupID, commands := range m.types {
		for _, pt := range commands {
			for _, rule := range pt.Schedule {
				rules = append(rules, BoundRule{GroupID: groupID, PollType: pt, Rule: rule})
			}
		}
	}
	return rules
}

type mockHistory struct {
	mu        sync.Mutex
	entries   []*HistoryEntry
	counter   int64
	appendErr error
}

func (m *mockHistory) Append(e *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.counter++
	e.ID = m.counter
	cp := *e
	cp.Participants = append([]Participant(nil), e.Participants...)
	// newest first
	m.entries = append([]*HistoryEntry{&cp}, m.entries...)
	return nil
}

func (m *mockHistory) Update(groupID int64, messageID int, upd HistoryUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.GroupID != groupID || e.MessageID != messageID {
			continue
		}
		if upd.Participants != nil {
			e.Participants = append([]Participant(nil), *upd.Participants...)
		}
		if upd.Active != nil {
			e.Active = *upd.Active
		}
		if upd.Pinned != nil {
			e.Pinned = *upd.Pinned
		}
		return nil
	}
	return ErrEntryNotFound
}

func (m *mockHistory) LoadAll() ([]*HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*HistoryEntry(nil), m.entries...), nil
}

func (m *mockHistory) newest() *HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[0]
}

type mockTransport struct {
	mu       sync.Mutex
	nextID   int
	sent     []string
	edits    []string
	pins     int
	unpins   int
	sendErr  error
	editErr  error
	pinErr   error
	unpinErr error
}

func (m *mockTransport) SendPoll(groupID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	m.sent = append(m.sent, text)
	return m.nextID, nil
}

func (m *mockTransport) EditPoll(groupID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, text)
	return nil
}

func (m *mockTransport) Pin(groupID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pinErr != nil {
		return m.pinErr
	}
	m.pins++
	return nil
}

func (m *mockTransport) Unpin(groupID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unpinErr != nil {
		return m.unpinErr
	}
	m.unpins++
	return nil
}

func (m *mockTransport) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

const testGroupID = int64(-100500)

// mondayEvening is 2024-01-01 18:00:15 UTC, a Monday.
var mondayEvening = time.Date(2024, 1, 1, 18, 0, 15, 0, time.UTC)

func testConfig() *mockConfig {
	return &mockConfig{types: map[int64]map[string]*PollType{
		testGroupID: {
			"saber": {
				Command:  "saber",
				Question: "Сабля сегодня. Кто придёт?",
				Manual:   ManualSettings{TTLMinutes: 120},
				Schedule: []ScheduleRule{
					{
						Day:      Weekday(time.Monday),
						CreateAt: TimeOfDay{Hour: 18},
						ExpireAt: TimeOfDay{Hour: 20},
						Pin:      true,
						Unpin:    true,
					},
				},
			},
			"rapier": {
				Command:  "rapier",
				Question: "Рапира. Кто придёт?",
			},
		},
	}}
}

func newTestService(t *testing.T) (*Service, *mockHistory, *mockTransport) {
	t.Helper()
	history := &mockHistory{}
	transport := &mockTransport{}
	svc := NewService(testConfig(), history, transport, slog.Default(), time.UTC)
	svc.now = func() time.Time { return mondayEvening }
	return svc, history, transport
}

func TestCreate_SingleActiveInvariant(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.Create(testGroupID, "saber", TriggerManual, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.Create(testGroupID, "rapier", TriggerManual, nil)
	if !errors.Is(err, ErrPollExists) {
		t.Fatalf("second Create: got %v, want ErrPollExists", err)
	}

	active := svc.Active()
	if active.PollType != first.PollType || active.MessageID != first.MessageID {
		t.Errorf("first poll was altered by rejected Create: %+v", active)
	}
}

func TestCreate_Concurrent(t *testing.T) {
	svc, _, transport := newTestService(t)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(testGroupID, "saber", TriggerManual, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrPollExists):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("got %d successful creates, want exactly 1", succeeded)
	}
	if rejected != attempts-1 {
		t.Errorf("got %d rejections, want %d", rejected, attempts-1)
	}
	if transport.sentCount() != 1 {
		t.Errorf("got %d sent messages, want 1", transport.sentCount())
	}
}

func TestCreate_UnknownPollType(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Create(testGroupID, "chess", TriggerManual, nil); !errors.Is(err, ErrUnknownPollType) {
		t.Fatalf("got %v, want ErrUnknownPollType", err)
	}
	if _, err := svc.Create(42, "saber", TriggerManual, nil); !errors.Is(err, ErrUnknownPollType) {
		t.Fatalf("unconfigured group: got %v, want ErrUnknownPollType", err)
	}
}

func TestCreate_SendFailureAbortsBeforeCommit(t *testing.T) {
	svc, history, transport := newTestService(t)
	transport.sendErr = errors.New("telegram is down")

	if _, err := svc.Create(testGroupID, "saber", TriggerManual, nil); err == nil {
		t.Fatal("expected error from Create")
	}

	if svc.Active() != nil {
		t.Error("no ActivePoll should exist after failed send")
	}
	if history.newest() != nil {
		t.Error("no history entry should exist after failed send")
	}
}

func TestCreate_ScheduledExpiry(t *testing.T) {
	svc, history, _ := newTestService(t)
	rule := testConfig().types[testGroupID]["saber"].Schedule[0]

	p, err := svc.Create(testGroupID, "saber", TriggerScheduled, &rule)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	if !p.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", p.ExpiresAt, want)
	}
	if e := history.newest(); e == nil || !e.ExpiresAt.Equal(want) {
		t.Errorf("history ExpiresAt = %+v, want %v", e, want)
	}
}

func TestCreate_ManualExpiryFromNearestRule(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Monday 18:00:15, the rule expiry at Monday 20:00 is still upcoming today.
	p, err := svc.Create(testGroupID, "saber", TriggerManual, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	if !p.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", p.ExpiresAt, want)
	}
}

func TestCreate_ManualExpiryNextWeekWhenPassed(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC) }

	p, err := svc.Create(testGroupID, "saber", TriggerManual, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC)
	if !p.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v (next Monday)", p.ExpiresAt, want)
	}
}

func TestCreate_ManualExpiryFallbackTTL(t *testing.T) {
	svc, _, _ := newTestService(t)

	// rapier has no schedule and no TTL configured: default 8 hours.
	p, err := svc.Create(testGroupID, "rapier", TriggerManual, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := mondayEvening.Add(8 * time.Hour)
	if !p.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", p.ExpiresAt, want)
	}
}

func TestJoin_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCreate(t, svc, "saber")

	if _, err := svc.Join(1, "alice", "Alice"); err != nil {
		t.Fatalf("first Join failed: %v", err)
	}
	if _, err := svc.Join(1, "alice", "Alice"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second Join: got %v, want ErrAlreadyJoined", err)
	}

	if got := len(svc.Active().Participants); got != 1 {
		t.Errorf("got %d participants, want 1", got)
	}
}

func TestLeave_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCreate(t, svc, "saber")

	svc.Join(1, "alice", "Alice")
	if _, err := svc.Leave(1); err != nil {
		t.Fatalf("first Leave failed: %v", err)
	}
	if _, err := svc.Leave(1); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("second Leave: got %v, want ErrNotJoined", err)
	}
}

func TestOrderPreservation(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCreate(t, svc, "saber")

	svc.Join(1, "alice", "Alice")
	svc.Join(2, "bob", "Bob")
	svc.Leave(1)
	svc.Join(1, "alice", "Alice")

	got := svc.Active().Participants
	if len(got) != 2 || got[0].UserID != 2 || got[1].UserID != 1 {
		t.Errorf("participants = %+v, want [bob, alice]", got)
	}
}

func TestJoin_RejectedWhenExpired(t *testing.T) {
	svc, _, _ := newTestService(t)
	rule := testConfig().types[testGroupID]["saber"].Schedule[0]
	mustCreateScheduled(t, svc, "saber", &rule)

	// Still open at 19:59.
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 19, 59, 0, 0, time.UTC) }
	if _, err := svc.Join(1, "alice", "Alice"); err != nil {
		t.Fatalf("Join at 19:59 failed: %v", err)
	}

	// Past the deadline at 20:00:01.
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 20, 0, 1, 0, time.UTC) }
	if _, err := svc.Join(2, "bob", "Bob"); !errors.Is(err, ErrPollExpired) {
		t.Fatalf("Join at 20:00:01: got %v, want ErrPollExpired", err)
	}
}

func TestJoin_UpdatesHistory(t *testing.T) {
	svc, history, _ := newTestService(t)
	mustCreate(t, svc, "saber")

	svc.Join(1, "alice", "Alice")
	svc.Join(2, "", "Bob")

	e := history.newest()
	if len(e.Participants) != 2 {
		t.Fatalf("history has %d participants, want 2", len(e.Participants))
	}
	if e.Participants[0].UserID != 1 || e.Participants[1].UserID != 2 {
		t.Errorf("history participants out of order: %+v", e.Participants)
	}
}

func TestDeactivate_Idle(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Deactivate("manual"); !errors.Is(err, ErrNoActivePoll) {
		t.Fatalf("got %v, want ErrNoActivePoll", err)
	}
}

func TestDeactivate_ClosesHistoryEntry(t *testing.T) {
	svc, history, _ := newTestService(t)
	mustCreate(t, svc, "saber")
	svc.Join(1, "alice", "Alice")

	if _, err := svc.Deactivate("manual"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	if svc.Active() != nil {
		t.Error("slot should be free after Deactivate")
	}
	e := history.newest()
	if e.Active {
		t.Error("history entry should be inactive")
	}
	if len(e.Participants) != 1 {
		t.Errorf("final snapshot has %d participants, want 1", len(e.Participants))
	}
}

func TestDeactivate_UnpinReflectsOutcome(t *testing.T) {
	rule := ScheduleRule{
		Day:      Weekday(time.Monday),
		CreateAt: TimeOfDay{Hour: 18},
		ExpireAt: TimeOfDay{Hour: 20},
		Pin:      true,
		Unpin:    true,
	}

	t.Run("unpin succeeds", func(t *testing.T) {
		svc, history, transport := newTestService(t)
		mustCreateScheduled(t, svc, "saber", &rule)

		svc.Deactivate("manual")
		if transport.unpins != 1 {
			t.Errorf("got %d unpins, want 1", transport.unpins)
		}
		if history.newest().Pinned {
			t.Error("history entry should record unpinned state")
		}
	})

	t.Run("unpin fails", func(t *testing.T) {
		svc, history, transport := newTestService(t)
		mustCreateScheduled(t, svc, "saber", &rule)

		transport.unpinErr = errors.New("no rights")
		svc.Deactivate("manual")
		if !history.newest().Pinned {
			t.Error("history entry should keep pinned=true after failed unpin")
		}
	})
}

func TestRecover_RoundTrip(t *testing.T) {
	svc, history, transport := newTestService(t)
	created := mustCreate(t, svc, "saber")
	svc.Join(1, "alice", "Alice")
	svc.Join(2, "bob", "Bob")
	before := svc.Active()

	// Simulated restart: a fresh service over the same history store.
	restarted := NewService(testConfig(), history, transport, slog.Default(), time.UTC)
	restarted.now = func() time.Time { return mondayEvening }
	if err := restarted.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	after := restarted.Active()
	if after == nil {
		t.Fatal("expected recovered active poll")
	}
	if after.MessageID != created.MessageID {
		t.Errorf("MessageID = %d, want %d", after.MessageID, created.MessageID)
	}
	if !after.ExpiresAt.Equal(before.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", after.ExpiresAt, before.ExpiresAt)
	}
	if len(after.Participants) != 2 ||
		after.Participants[0] != before.Participants[0] ||
		after.Participants[1] != before.Participants[1] {
		t.Errorf("participants = %+v, want %+v", after.Participants, before.Participants)
	}
}

func TestRecover_Idle(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if svc.Active() != nil {
		t.Error("nothing to recover, slot should stay empty")
	}
}

func TestRecover_PicksNewestActiveEntry(t *testing.T) {
	history := &mockHistory{}
	older := &HistoryEntry{
		GroupID: testGroupID, MessageID: 1, PollType: "saber", Active: true,
		CreatedAt: mondayEvening.Add(-time.Hour), ExpiresAt: mondayEvening.Add(time.Hour),
	}
	newer := &HistoryEntry{
		GroupID: testGroupID, MessageID: 2, PollType: "rapier", Active: true,
		CreatedAt: mondayEvening, ExpiresAt: mondayEvening.Add(2 * time.Hour),
	}
	history.Append(older)
	history.Append(newer)

	svc := NewService(testConfig(), history, &mockTransport{}, slog.Default(), time.UTC)
	if err := svc.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	active := svc.Active()
	if active == nil || active.MessageID != 2 {
		t.Fatalf("recovered %+v, want newest entry (message 2)", active)
	}
	// The anomaly is left untouched in storage.
	entries, _ := history.LoadAll()
	if !entries[1].Active {
		t.Error("older anomaly should stay active in storage")
	}
}

func TestRerender_MessageGoneDropsLinkage(t *testing.T) {
	svc, _, transport := newTestService(t)
	mustCreate(t, svc, "saber")

	transport.editErr = ErrMessageNotFound
	if _, err := svc.Join(1, "alice", "Alice"); err != nil {
		t.Fatalf("Join failed despite lost message: %v", err)
	}

	if !svc.Active().RenderLost {
		t.Error("expected render linkage to be dropped")
	}

	// Further mutations skip rendering but still succeed.
	transport.editErr = errors.New("should not be called")
	if _, err := svc.Join(2, "bob", "Bob"); err != nil {
		t.Fatalf("Join after lost message failed: %v", err)
	}
}

func mustCreate(t *testing.T, svc *Service, pollType string) *ActivePoll {
	t.Helper()
	p, err := svc.Create(testGroupID, pollType, TriggerManual, nil)
	if err != nil {
		t.Fatalf("Create %s failed: %v", pollType, err)
	}
	return p
}

func mustCreateScheduled(t *testing.T, svc *Service, pollType string, rule *ScheduleRule) *ActivePoll {
	t.Helper()
	p, err := svc.Create(testGroupID, pollType, TriggerScheduled, rule)
	if err != nil {
		t.Fatalf("Create %s failed: %v", pollType, err)
	}
	return p
}
