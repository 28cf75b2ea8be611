package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"learning-service/internal/models"
)

// fixedDay pins the service clock to noon UTC on day n of the test calendar.
func fixedDay(svc *StreakService, n int) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day := base.AddDate(0, 0, n)
	svc.now = func() time.Time { return day }
}

func newStreakFixture() (*StreakService, *memStreakStore, *capturingLedger, *countingEvaluator) {
	store := newMemStreakStore()
	svc := NewStreakService(store, nil, nil)
	ledger := &capturingLedger{}
	evaluator := &countingEvaluator{}
	svc.BindLedger(ledger)
	svc.BindBadgeEvaluator(evaluator)
	return svc, store, ledger, evaluator
}

func TestRecordActivityFirstDay(t *testing.T) {
	svc, _, _, _ := newStreakFixture()
	fixedDay(svc, 0)

	streak, err := svc.RecordActivity(context.Background(), "child-1")
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if streak.Current != 1 || streak.Longest != 1 {
		t.Errorf("current=%d longest=%d, want 1/1", streak.Current, streak.Longest)
	}
}

func TestRecordActivitySameDayIsNoOp(t *testing.T) {
	svc, _, _, evaluator := newStreakFixture()
	fixedDay(svc, 0)
	ctx := context.Background()

	if _, err := svc.RecordActivity(ctx, "child-1"); err != nil {
		t.Fatalf("first activity failed: %v", err)
	}
	passes := evaluator.calls

	streak, err := svc.RecordActivity(ctx, "child-1")
	if err != nil {
		t.Fatalf("same-day repeat failed: %v", err)
	}
	if streak.Current != 1 {
		t.Errorf("current = %d after same-day repeat, want 1", streak.Current)
	}
	if evaluator.calls != passes {
		t.Error("a same-day repeat must not run another badge pass")
	}
}

func TestRecordActivityConsecutiveDays(t *testing.T) {
	svc, _, _, _ := newStreakFixture()
	ctx := context.Background()

	for day := 0; day < 5; day++ {
		fixedDay(svc, day)
		streak, err := svc.RecordActivity(ctx, "child-1")
		if err != nil {
			t.Fatalf("day %d failed: %v", day, err)
		}
		if streak.Current != day+1 {
			t.Errorf("day %d: current = %d, want %d", day, streak.Current, day+1)
		}
	}
}

func TestRecordActivityFreezeBridgesOneMissedDay(t *testing.T) {
	svc, store, _, _ := newStreakFixture()
	ctx := context.Background()

	fixedDay(svc, 0)
	if _, err := svc.RecordActivity(ctx, "child-1"); err != nil {
		t.Fatalf("day 0 failed: %v", err)
	}
	store.streaks["child-1"].FreezesAvailable = 1

	// Day 1 missed entirely, active again on day 2
	fixedDay(svc, 2)
	streak, err := svc.RecordActivity(ctx, "child-1")
	if err != nil {
		t.Fatalf("day 2 failed: %v", err)
	}
	if streak.Current != 2 {
		t.Errorf("current = %d after a bridged gap, want 2", streak.Current)
	}
	if streak.FreezesAvailable != 0 {
		t.Errorf("freezes = %d, want 0 (one consumed)", streak.FreezesAvailable)
	}
}

func TestRecordActivityMissedDayWithoutFreezeResets(t *testing.T) {
	svc, _, _, _ := newStreakFixture()
	ctx := context.Background()

	for day := 0; day < 3; day++ {
		fixedDay(svc, day)
		if _, err := svc.RecordActivity(ctx, "child-1"); err != nil {
			t.Fatalf("day %d failed: %v", day, err)
		}
	}

	fixedDay(svc, 4)
	streak, err := svc.RecordActivity(ctx, "child-1")
	if err != nil {
		t.Fatalf("day 4 failed: %v", err)
	}
	if streak.Current != 1 {
		t.Errorf("current = %d after an unbridged miss, want 1", streak.Current)
	}
	if streak.Longest != 3 {
		t.Errorf("longest = %d, want 3 preserved across the reset", streak.Longest)
	}
}

func TestRecordActivityLongGapResetsEvenWithFreeze(t *testing.T) {
	svc, store, _, _ := newStreakFixture()
	ctx := context.Background()

	fixedDay(svc, 0)
	if _, err := svc.RecordActivity(ctx, "child-1"); err != nil {
		t.Fatalf("day 0 failed: %v", err)
	}
	store.streaks["child-1"].FreezesAvailable = 2

	// Two missed days: a freeze only covers a single-day gap
	fixedDay(svc, 3)
	streak, err := svc.RecordActivity(ctx, "child-1")
	if err != nil {
		t.Fatalf("day 3 failed: %v", err)
	}
	if streak.Current != 1 {
		t.Errorf("current = %d after a two-day gap, want 1", streak.Current)
	}
	if streak.FreezesAvailable != 2 {
		t.Errorf("freezes = %d, want 2 untouched", streak.FreezesAvailable)
	}
}

func TestRecordActivityMilestoneBonus(t *testing.T) {
	svc, _, ledger, evaluator := newStreakFixture()
	ctx := context.Background()

	for day := 0; day < 7; day++ {
		fixedDay(svc, day)
		if _, err := svc.RecordActivity(ctx, "child-1"); err != nil {
			t.Fatalf("day %d failed: %v", day, err)
		}
	}

	if len(ledger.requests) != 1 {
		t.Fatalf("ledger awards = %d, want exactly the day-7 bonus", len(ledger.requests))
	}
	bonus := ledger.requests[0]
	if bonus.Amount != 35 || bonus.Reason != models.ReasonStreakBonus {
		t.Errorf("bonus = %+v, want 35 XP with reason %s", bonus, models.ReasonStreakBonus)
	}
	// Days 1-6 each run a direct badge pass; day 7 goes through the ledger,
	// which owns the pass for that event.
	if evaluator.calls != 6 {
		t.Errorf("direct badge passes = %d, want 6", evaluator.calls)
	}
}

func TestUseStreakFreeze(t *testing.T) {
	svc, store, _, _ := newStreakFixture()
	ctx := context.Background()

	if err := svc.UseStreakFreeze(ctx, "child-1"); !errors.Is(err, ErrNoFreezeAvailable) {
		t.Errorf("no-streak freeze error = %v, want ErrNoFreezeAvailable", err)
	}

	store.streaks["child-1"] = &models.Streak{ChildID: "child-1", FreezesAvailable: 1}
	if err := svc.UseStreakFreeze(ctx, "child-1"); err != nil {
		t.Fatalf("UseStreakFreeze failed: %v", err)
	}
	if store.streaks["child-1"].FreezesAvailable != 0 {
		t.Errorf("freezes = %d, want 0", store.streaks["child-1"].FreezesAvailable)
	}
	if err := svc.UseStreakFreeze(ctx, "child-1"); !errors.Is(err, ErrNoFreezeAvailable) {
		t.Errorf("exhausted freeze error = %v, want ErrNoFreezeAvailable", err)
	}
}

// staleStreakStore serves one stale read, standing in for a concurrent
// request that advanced the day between this caller's read and its write.
type staleStreakStore struct {
	*memStreakStore
	stale     *models.Streak
	staleLeft int
}

func (s *staleStreakStore) FindByChild(ctx context.Context, childID string) (*models.Streak, error) {
	if s.staleLeft > 0 {
		s.staleLeft--
		out := *s.stale
		return &out, nil
	}
	return s.memStreakStore.FindByChild(ctx, childID)
}

func testDay(n int) time.Time {
	return models.UTCDate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n))
}

func TestRecordActivityDayRaceAwardsOnce(t *testing.T) {
	mem := newMemStreakStore()
	// A concurrent request already moved the streak to day 7
	mem.streaks["child-1"] = &models.Streak{ChildID: "child-1", Current: 7, Longest: 7, LastActiveDate: testDay(6)}

	store := &staleStreakStore{
		memStreakStore: mem,
		stale:          &models.Streak{ChildID: "child-1", Current: 6, Longest: 6, LastActiveDate: testDay(5)},
		staleLeft:      1,
	}
	svc := NewStreakService(store, nil, nil)
	ledger := &capturingLedger{}
	evaluator := &countingEvaluator{}
	svc.BindLedger(ledger)
	svc.BindBadgeEvaluator(evaluator)
	fixedDay(svc, 6)

	streak, err := svc.RecordActivity(context.Background(), "child-1")
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if streak.Current != 7 {
		t.Errorf("current = %d, want the winner's 7", streak.Current)
	}
	// The loser of the day transition must not re-award the day-7 bonus or
	// run another badge pass
	if len(ledger.requests) != 0 {
		t.Errorf("ledger awards = %d, want 0", len(ledger.requests))
	}
	if evaluator.calls != 0 {
		t.Errorf("badge passes = %d, want 0", evaluator.calls)
	}
}

func TestRecordActivityDayRaceRefundsFreeze(t *testing.T) {
	mem := newMemStreakStore()
	mem.streaks["child-1"] = &models.Streak{ChildID: "child-1", Current: 5, Longest: 5, LastActiveDate: testDay(6), FreezesAvailable: 1}

	store := &staleStreakStore{
		memStreakStore: mem,
		stale:          &models.Streak{ChildID: "child-1", Current: 4, Longest: 4, LastActiveDate: testDay(4), FreezesAvailable: 1},
		staleLeft:      1,
	}
	svc := NewStreakService(store, nil, nil)
	fixedDay(svc, 6)

	// The stale read shows a bridgeable gap, so a freeze gets consumed; the
	// lost write must put it back.
	if _, err := svc.RecordActivity(context.Background(), "child-1"); err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if got := mem.streaks["child-1"].FreezesAvailable; got != 1 {
		t.Errorf("freezes = %d, want 1 after refund", got)
	}
	if got := mem.streaks["child-1"].Current; got != 5 {
		t.Errorf("current = %d, want the winner's 5", got)
	}
}

func TestGrantFreezes(t *testing.T) {
	svc, store, _, _ := newStreakFixture()
	ctx := context.Background()

	if err := svc.GrantFreezes(ctx, "child-1", 2); err != nil {
		t.Fatalf("GrantFreezes failed: %v", err)
	}
	if store.streaks["child-1"].FreezesAvailable != 2 {
		t.Errorf("freezes = %d, want 2", store.streaks["child-1"].FreezesAvailable)
	}

	if err := svc.GrantFreezes(ctx, "child-1", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("count=0 error = %v, want ErrValidation", err)
	}
	if err := svc.GrantFreezes(ctx, "", 1); !errors.Is(err, ErrValidation) {
		t.Errorf("missing child error = %v, want ErrValidation", err)
	}
}

func TestGetStreakInfo(t *testing.T) {
	svc, _, _, _ := newStreakFixture()
	fixedDay(svc, 0)
	ctx := context.Background()

	info, err := svc.GetStreakInfo(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetStreakInfo failed: %v", err)
	}
	if info.Current != 0 || info.IsActiveToday {
		t.Errorf("unknown child info = %+v, want zeroes", info)
	}

	if _, err := svc.RecordActivity(ctx, "child-1"); err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	info, err = svc.GetStreakInfo(ctx, "child-1")
	if err != nil {
		t.Fatalf("GetStreakInfo failed: %v", err)
	}
	if info.Current != 1 || !info.IsActiveToday {
		t.Errorf("info = %+v, want current=1 active today", info)
	}
}
