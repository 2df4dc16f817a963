package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCreateAndGet(t *testing.T) {
	store := NewStore(10, nil)

	sess := store.Create()
	if sess.ID == uuid.Nil {
		t.Fatal("Create() returned zero UUID")
	}
	if len(sess.Turns) != 0 {
		t.Errorf("new session has %d turns, want 0", len(sess.Turns))
	}

	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("Get() ID = %s, want %s", got.ID, sess.ID)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewStore(10, nil)

	_, err := store.Get(uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestAppendExchange(t *testing.T) {
	store := NewStore(10, nil)
	sess := store.Create()

	exchanges := []struct{ user, assistant string }{
		{user: "hello", assistant: "hi there"},
		{user: "how are you?", assistant: "fine, thanks"},
		{user: "bye", assistant: "goodbye"},
	}
	for _, ex := range exchanges {
		if err := store.AppendExchange(sess.ID, ex.user, ex.assistant); err != nil {
			t.Fatalf("AppendExchange() unexpected error: %v", err)
		}
	}

	history, err := store.History(sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}

	// N exchanges produce exactly 2N turns in strict user/assistant alternation.
	if len(history) != 2*len(exchanges) {
		t.Fatalf("history has %d turns, want %d", len(history), 2*len(exchanges))
	}
	for i, turn := range history {
		wantRole := RoleUser
		wantContent := exchanges[i/2].user
		if i%2 == 1 {
			wantRole = RoleAssistant
			wantContent = exchanges[i/2].assistant
		}
		if turn.Role != wantRole {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, wantRole)
		}
		if turn.Content != wantContent {
			t.Errorf("turn %d content = %q, want %q", i, turn.Content, wantContent)
		}
		if turn.CreatedAt.IsZero() {
			t.Errorf("turn %d has zero timestamp", i)
		}
	}
}

func TestAppendExchangeNotFound(t *testing.T) {
	store := NewStore(10, nil)

	err := store.AppendExchange(uuid.New(), "hi", "hello")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendExchange() error = %v, want ErrNotFound", err)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore(10, nil)
	sess := store.Create()

	if err := store.AppendExchange(sess.ID, "original", "answer"); err != nil {
		t.Fatalf("AppendExchange() unexpected error: %v", err)
	}

	history, err := store.History(sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	history[0].Content = "mutated"

	again, err := store.History(sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if again[0].Content != "original" {
		t.Errorf("stored turn content = %q, mutation of snapshot leaked into store", again[0].Content)
	}
}

func TestDelete(t *testing.T) {
	store := NewStore(10, nil)
	sess := store.Create()

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after delete, want 0", store.Len())
	}

	// Deleting twice must fail: delete is strict.
	if err := store.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSessions(t *testing.T) {
	store := NewStore(10, nil)
	a := store.Create()
	b := store.Create()
	if err := store.AppendExchange(b.ID, "q", "a"); err != nil {
		t.Fatalf("AppendExchange() unexpected error: %v", err)
	}

	infos := store.Sessions()
	if len(infos) != 2 {
		t.Fatalf("Sessions() returned %d infos, want 2", len(infos))
	}

	counts := map[uuid.UUID]int{}
	for _, info := range infos {
		counts[info.ID] = info.TurnCount
	}
	if counts[a.ID] != 0 {
		t.Errorf("session %s turn count = %d, want 0", a.ID, counts[a.ID])
	}
	if counts[b.ID] != 2 {
		t.Errorf("session %s turn count = %d, want 2", b.ID, counts[b.ID])
	}
}

func TestAcquireExchangeSerializes(t *testing.T) {
	store := NewStore(10, nil)
	sess := store.Create()
	ctx := context.Background()

	release, err := store.AcquireExchange(ctx, sess.ID)
	if err != nil {
		t.Fatalf("AcquireExchange() unexpected error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := store.AcquireExchange(ctx, sess.ID)
		if err != nil {
			t.Errorf("second AcquireExchange() unexpected error: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second exchange acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second exchange never acquired after release")
	}
}

func TestAcquireExchangeIndependentSessions(t *testing.T) {
	store := NewStore(10, nil)
	a := store.Create()
	b := store.Create()
	ctx := context.Background()

	releaseA, err := store.AcquireExchange(ctx, a.ID)
	if err != nil {
		t.Fatalf("AcquireExchange(a) unexpected error: %v", err)
	}
	defer releaseA()

	// Holding session a must not block session b.
	bCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := store.AcquireExchange(bCtx, b.ID)
	if err != nil {
		t.Fatalf("AcquireExchange(b) blocked by unrelated session: %v", err)
	}
	releaseB()
}

func TestAcquireExchangeContextCanceled(t *testing.T) {
	store := NewStore(10, nil)
	sess := store.Create()

	release, err := store.AcquireExchange(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("AcquireExchange() unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = store.AcquireExchange(ctx, sess.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireExchange() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestConcurrentExchangesKeepHistoryConsistent(t *testing.T) {
	store := NewStore(10, nil)
	sess := store.Create()
	ctx := context.Background()

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				release, err := store.AcquireExchange(ctx, sess.ID)
				if err != nil {
					t.Errorf("AcquireExchange() unexpected error: %v", err)
					return
				}
				if err := store.AppendExchange(sess.ID, "question", "answer"); err != nil {
					t.Errorf("AppendExchange() unexpected error: %v", err)
				}
				release()
			}
		}()
	}
	wg.Wait()

	history, err := store.History(sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(history) != 2*workers*perWorker {
		t.Fatalf("history has %d turns, want %d", len(history), 2*workers*perWorker)
	}
	for i, turn := range history {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d role = %q, want %q (torn exchange)", i, turn.Role, want)
		}
	}
}

func TestCreateEvictsLRUAtCapacity(t *testing.T) {
	store := NewStore(2, nil)

	oldest := store.Create()
	time.Sleep(5 * time.Millisecond)
	kept := store.Create()
	time.Sleep(5 * time.Millisecond)

	// Touch the oldest so the other becomes the LRU victim.
	if _, err := store.Get(oldest.ID); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	newest := store.Create()
	if store.Len() != 2 {
		t.Fatalf("Len() = %d after eviction, want 2", store.Len())
	}

	if _, err := store.Get(kept.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("LRU session should have been evicted, Get() error = %v", err)
	}
	if _, err := store.Get(oldest.ID); err != nil {
		t.Errorf("recently touched session was evicted: %v", err)
	}
	if _, err := store.Get(newest.ID); err != nil {
		t.Errorf("new session missing after eviction: %v", err)
	}
}

func TestEvictionSkipsBusySessions(t *testing.T) {
	store := NewStore(1, nil)
	busy := store.Create()

	release, err := store.AcquireExchange(context.Background(), busy.ID)
	if err != nil {
		t.Fatalf("AcquireExchange() unexpected error: %v", err)
	}
	defer release()

	// Over capacity, but the only candidate is mid-exchange.
	store.Create()
	if _, err := store.Get(busy.ID); err != nil {
		t.Errorf("busy session was evicted: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (temporary over-capacity)", store.Len())
	}
}

func TestSweep(t *testing.T) {
	store := NewStore(10, nil)
	idle := store.Create()
	busy := store.Create()

	release, err := store.AcquireExchange(context.Background(), busy.ID)
	if err != nil {
		t.Fatalf("AcquireExchange() unexpected error: %v", err)
	}
	defer release()

	time.Sleep(10 * time.Millisecond)

	removed := store.Sweep(5 * time.Millisecond)
	if removed != 1 {
		t.Errorf("Sweep() removed %d sessions, want 1", removed)
	}
	if _, err := store.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session should have been swept, Get() error = %v", err)
	}
	if _, err := store.Get(busy.ID); err != nil {
		t.Errorf("busy session was swept: %v", err)
	}

	// Fresh activity keeps sessions alive.
	if removed := store.Sweep(time.Hour); removed != 0 {
		t.Errorf("Sweep() removed %d recently active sessions, want 0", removed)
	}
}
