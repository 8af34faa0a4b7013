package mastery_test

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/mastery"
)

// testStore runs the behavior every Store implementation must share.
func testStore(t *testing.T, store mastery.Store) {
	t.Helper()
	ctx := t.Context()

	t.Run("get missing", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "nobody")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok {
			t.Error("Get() found a learner that was never written")
		}
	})

	t.Run("get or create", func(t *testing.T) {
		st, err := store.GetOrCreate(ctx, "fresh")
		if err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
		if st.UserID != "fresh" || len(st.Mastery) != 0 || len(st.Seen) != 0 || len(st.Known) != 0 {
			t.Errorf("GetOrCreate() = %+v, want empty state", st)
		}
		if _, ok, _ := store.Get(ctx, "fresh"); !ok {
			t.Error("GetOrCreate() did not persist the state")
		}
	})

	t.Run("record mastery", func(t *testing.T) {
		if err := store.AddSeen(ctx, "rm", "L1"); err != nil {
			t.Fatalf("AddSeen() error = %v", err)
		}
		if _, err := store.RecordMastery(ctx, "rm", "L1", 0.8); err != nil {
			t.Fatalf("RecordMastery() error = %v", err)
		}
		st, err := store.RecordMastery(ctx, "rm", "L1", 0.3)
		if err != nil {
			t.Fatalf("RecordMastery() error = %v", err)
		}
		if st.Mastery["L1"] != 0.8 {
			t.Errorf("mastery = %v, want 0.8", st.Mastery["L1"])
		}
		if slices.Contains(st.Seen, "L1") {
			t.Errorf("Seen = %v, scored lesson should be removed", st.Seen)
		}
	})

	t.Run("add seen idempotent", func(t *testing.T) {
		for range 3 {
			if err := store.AddSeen(ctx, "seen", "L2"); err != nil {
				t.Fatalf("AddSeen() error = %v", err)
			}
		}
		st, _, err := store.Get(ctx, "seen")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !slices.Equal(st.Seen, []string{"L2"}) {
			t.Errorf("Seen = %v, want [L2]", st.Seen)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		if err := store.SetLevelOverride(ctx, "ov", mastery.RankAdvanced); err != nil {
			t.Fatalf("SetLevelOverride() error = %v", err)
		}
		if err := store.SetGoalsOverride(ctx, "ov", []string{"theory", "rhythm"}); err != nil {
			t.Fatalf("SetGoalsOverride() error = %v", err)
		}
		st, _, err := store.Get(ctx, "ov")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if st.LevelOverride != mastery.RankAdvanced {
			t.Errorf("LevelOverride = %q, want advanced", st.LevelOverride)
		}
		if !slices.Equal(st.GoalsOverride, []string{"theory", "rhythm"}) {
			t.Errorf("GoalsOverride = %v", st.GoalsOverride)
		}

		if err := store.SetGoalsOverride(ctx, "ov", nil); err != nil {
			t.Fatalf("SetGoalsOverride(nil) error = %v", err)
		}
		st, _, _ = store.Get(ctx, "ov")
		if len(st.GoalsOverride) != 0 {
			t.Errorf("GoalsOverride = %v, want cleared", st.GoalsOverride)
		}
	})

	t.Run("concurrent updates converge", func(t *testing.T) {
		const writers = 8
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				lesson := fmt.Sprintf("S%d", i)
				if err := store.AddSeen(ctx, "race", lesson); err != nil {
					t.Errorf("AddSeen() error = %v", err)
				}
				if _, err := store.RecordMastery(ctx, "race", "M", float64(i)/10); err != nil {
					t.Errorf("RecordMastery() error = %v", err)
				}
			}()
		}
		wg.Wait()

		st, _, err := store.Get(ctx, "race")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(st.Seen) != writers {
			t.Errorf("len(Seen) = %d, want %d (set union)", len(st.Seen), writers)
		}
		if want := float64(writers-1) / 10; st.Mastery["M"] != want {
			t.Errorf("mastery = %v, want max %v", st.Mastery["M"], want)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, mastery.NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := t.Context()
	store := mastery.NewMemoryStore()

	st, err := store.RecordMastery(ctx, "u1", "L1", 0.5)
	if err != nil {
		t.Fatalf("RecordMastery() error = %v", err)
	}
	st.Mastery["L1"] = 0

	got, _, _ := store.Get(ctx, "u1")
	if got.Mastery["L1"] != 0.5 {
		t.Errorf("stored mastery = %v, caller mutation leaked into the store", got.Mastery["L1"])
	}
}
