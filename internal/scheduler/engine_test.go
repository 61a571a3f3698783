package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/janic0/autotwitter/internal/models"
)

type fakePostStore struct {
	mu    sync.Mutex
	posts map[string]*models.ScheduledPost
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[string]*models.ScheduledPost)}
}

func (s *fakePostStore) ListPosts(_ context.Context, accountID string) ([]*models.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ScheduledPost, 0, len(s.posts))
	for _, p := range s.posts {
		if p.AccountID == accountID {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakePostStore) SavePost(_ context.Context, post *models.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *post
	s.posts[post.ID] = &clone
	return nil
}

type fakeConfigStore struct {
	cfg *models.AccountConfig
}

func (s *fakeConfigStore) Config(context.Context, string) (*models.AccountConfig, error) {
	return s.cfg, nil
}

func dayConfig(quota int) *models.AccountConfig {
	return &models.AccountConfig{
		Frequency: models.FrequencyConfig{Type: models.PeriodDay, Value: quota},
		Time: models.TimeConfig{
			Type:     models.TimeSpecific,
			Value:    []string{"12:00"},
			Computed: []models.ClockTime{{Hour: 12}},
		},
	}
}

func rangeConfig(quota int) *models.AccountConfig {
	return &models.AccountConfig{
		Frequency: models.FrequencyConfig{Type: models.PeriodDay, Value: quota},
		Time: models.TimeConfig{
			Type:     models.TimeRange,
			Value:    []string{"10:00", "20:00"},
			Computed: []models.ClockTime{{Hour: 10}, {Hour: 20}},
		},
	}
}

func newPost(id string, createdAt time.Time, offset float64) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:           id,
		AccountID:    "acct-1",
		Text:         "post " + id,
		CreatedAt:    createdAt,
		RandomOffset: offset,
	}
}

func testEngine(cfg *models.AccountConfig, now time.Time) (*Engine, *fakePostStore) {
	posts := newFakePostStore()
	engine := NewEngine(posts, &fakeConfigStore{cfg: cfg}, WithClock(func() time.Time { return now }))
	return engine, posts
}

func TestScheduleOneZeroQuota(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, posts := testEngine(dayConfig(0), now)

	got, err := engine.ScheduleOne(context.Background(), newPost("a", now, 0.4))
	if err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}
	if got.ScheduledAt != nil {
		t.Errorf("ScheduledAt = %v, want nil with zero quota", got.ScheduledAt)
	}
	stored := posts.posts["a"]
	if stored == nil {
		t.Fatal("post not persisted")
	}
	if stored.ScheduledAt != nil {
		t.Error("persisted post carries an instant despite zero quota")
	}
}

func TestScheduleOneSpillsIntoLaterWindows(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, _ := testEngine(dayConfig(1), now)

	var instants []time.Time
	for i := 0; i < 3; i++ {
		p, err := engine.ScheduleOne(context.Background(),
			newPost(fmt.Sprintf("p%d", i), now.Add(time.Duration(i)*time.Minute), 0.2))
		if err != nil {
			t.Fatalf("ScheduleOne #%d: %v", i, err)
		}
		if p.ScheduledAt == nil {
			t.Fatalf("post %d has no instant", i)
		}
		instants = append(instants, *p.ScheduledAt)
	}

	for i, want := range []time.Time{
		time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC),
	} {
		if !instants[i].Equal(want) {
			t.Errorf("post %d scheduled at %v, want %v", i, instants[i], want)
		}
	}
}

func TestScheduleOneNeverExceedsQuota(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	const quota = 2
	engine, posts := testEngine(rangeConfig(quota), now)

	for i := 0; i < 7; i++ {
		if _, err := engine.ScheduleOne(context.Background(),
			newPost(fmt.Sprintf("p%d", i), now.Add(time.Duration(i)*time.Minute), 0.3)); err != nil {
			t.Fatalf("ScheduleOne #%d: %v", i, err)
		}
	}

	perWindow := make(map[int64]int)
	for _, p := range posts.posts {
		if p.ScheduledAt == nil {
			t.Fatalf("post %s has no instant", p.ID)
		}
		w := CurrentWindow(models.PeriodDay, *p.ScheduledAt)
		perWindow[w.Start]++
	}
	for start, count := range perWindow {
		if count > quota {
			t.Errorf("window %v holds %d posts, quota is %d",
				time.UnixMilli(start).UTC(), count, quota)
		}
	}
}

func TestScheduleOneSubSlotSpread(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, _ := testEngine(rangeConfig(2), now)

	first, err := engine.ScheduleOne(context.Background(), newPost("a", now, 0))
	if err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}
	second, err := engine.ScheduleOne(context.Background(), newPost("b", now.Add(time.Minute), 0))
	if err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}

	// Quota 2 over 10:00-20:00 splits the range into two five-hour bands.
	if want := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC); !first.ScheduledAt.Equal(want) {
		t.Errorf("first post at %v, want %v", first.ScheduledAt, want)
	}
	if want := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC); !second.ScheduledAt.Equal(want) {
		t.Errorf("second post at %v, want %v", second.ScheduledAt, want)
	}
}

func TestRescheduleAllIdempotent(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, posts := testEngine(rangeConfig(2), now)

	for i := 0; i < 5; i++ {
		if _, err := engine.ScheduleOne(context.Background(),
			newPost(fmt.Sprintf("p%d", i), now.Add(time.Duration(i)*time.Minute), float64(i)/10)); err != nil {
			t.Fatalf("ScheduleOne #%d: %v", i, err)
		}
	}
	snapshot := func() map[string]time.Time {
		out := make(map[string]time.Time)
		for id, p := range posts.posts {
			out[id] = *p.ScheduledAt
		}
		return out
	}

	before := snapshot()
	for round := 0; round < 2; round++ {
		if _, err := engine.RescheduleAll(context.Background(), "acct-1", nil, nil); err != nil {
			t.Fatalf("RescheduleAll round %d: %v", round, err)
		}
		after := snapshot()
		for id, want := range before {
			if !after[id].Equal(want) {
				t.Errorf("round %d: post %s moved from %v to %v", round, id, want, after[id])
			}
		}
	}
}

func TestRescheduleAllPlacesInCreationOrder(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, posts := testEngine(dayConfig(1), now)

	// Persist directly, out of creation order, with stale instants.
	stale := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range []*models.ScheduledPost{
		newPost("late", now.Add(2*time.Hour), 0.1),
		newPost("early", now, 0.1),
		newPost("mid", now.Add(time.Hour), 0.1),
	} {
		p.ScheduledAt = &stale
		if err := posts.SavePost(context.Background(), p); err != nil {
			t.Fatalf("SavePost: %v", err)
		}
	}

	if _, err := engine.RescheduleAll(context.Background(), "acct-1", nil, nil); err != nil {
		t.Fatalf("RescheduleAll: %v", err)
	}

	want := map[string]time.Time{
		"early": time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
		"mid":   time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
		"late":  time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC),
	}
	for id, wantAt := range want {
		got := posts.posts[id].ScheduledAt
		if got == nil || !got.Equal(wantAt) {
			t.Errorf("post %s at %v, want %v", id, got, wantAt)
		}
	}
}

func TestRescheduleAllKeepsSentPosts(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, posts := testEngine(dayConfig(1), now)

	sentAt := time.Date(2026, 1, 2, 5, 0, 0, 0, time.UTC)
	sent := newPost("sent", now.Add(-time.Hour), 0.1)
	sent.Sent = true
	sent.ScheduledAt = &sentAt
	if err := posts.SavePost(context.Background(), sent); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	pending := newPost("pending", now, 0.1)
	if err := posts.SavePost(context.Background(), pending); err != nil {
		t.Fatalf("SavePost: %v", err)
	}

	if _, err := engine.RescheduleAll(context.Background(), "acct-1", nil, nil); err != nil {
		t.Fatalf("RescheduleAll: %v", err)
	}

	if got := posts.posts["sent"].ScheduledAt; !got.Equal(sentAt) {
		t.Errorf("sent post moved to %v", got)
	}
	// The sent post fills today's quota, so the pending one goes tomorrow.
	if want := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC); !posts.posts["pending"].ScheduledAt.Equal(want) {
		t.Errorf("pending post at %v, want %v", posts.posts["pending"].ScheduledAt, want)
	}
}

func TestRescheduleAllZeroQuotaClearsPendingOnly(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, posts := testEngine(dayConfig(0), now)

	sentAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sent := newPost("sent", now.Add(-24*time.Hour), 0.1)
	sent.Sent = true
	sent.ScheduledAt = &sentAt
	pendingAt := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	pending := newPost("pending", now, 0.1)
	pending.ScheduledAt = &pendingAt
	for _, p := range []*models.ScheduledPost{sent, pending} {
		if err := posts.SavePost(context.Background(), p); err != nil {
			t.Fatalf("SavePost: %v", err)
		}
	}

	if _, err := engine.RescheduleAll(context.Background(), "acct-1", nil, nil); err != nil {
		t.Fatalf("RescheduleAll: %v", err)
	}
	if posts.posts["pending"].ScheduledAt != nil {
		t.Error("pending post kept an instant despite zero quota")
	}
	if posts.posts["sent"].ScheduledAt == nil {
		t.Error("sent post lost its historical instant")
	}
}

func TestCheckFulfillment(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)
	engine, _ := testEngine(dayConfig(1), now)

	f, err := engine.CheckFulfillment(context.Background(), "acct-1", false)
	if err != nil {
		t.Fatalf("CheckFulfillment: %v", err)
	}
	if f.Fulfilled || f.Reality != 0 || f.Expectation != 1 {
		t.Errorf("empty account: %+v", f)
	}
	if f.PeriodStart != CurrentWindow(models.PeriodDay, now).Start {
		t.Errorf("PeriodStart = %d", f.PeriodStart)
	}

	if _, err := engine.ScheduleOne(context.Background(), newPost("a", now, 0.2)); err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}

	f, err = engine.CheckFulfillment(context.Background(), "acct-1", false)
	if err != nil {
		t.Fatalf("CheckFulfillment: %v", err)
	}
	if !f.Fulfilled || f.Reality != 1 {
		t.Errorf("current window after scheduling: %+v", f)
	}

	next, err := engine.CheckFulfillment(context.Background(), "acct-1", true)
	if err != nil {
		t.Fatalf("CheckFulfillment next: %v", err)
	}
	if next.Fulfilled || next.Reality != 0 {
		t.Errorf("next window: %+v", next)
	}
	if next.PeriodStart <= f.PeriodStart {
		t.Errorf("next PeriodStart %d not after current %d", next.PeriodStart, f.PeriodStart)
	}
}
