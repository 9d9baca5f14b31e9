package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	dir := t.TempDir()
	g, err := NewGateway(filepath.Join(dir, "users"), filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	t.Cleanup(func() {
		_ = g.Close()
	})
	return g
}

func TestGateway_SaveTurnBothTiers(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	setup := &WindowSetup{WindowIndex: 0, ConversationID: "conv-1", Mode: "internal", ModelID: "qwen2"}
	turn := &TurnRecord{UserQuery: "hello", AIResponse: "hi"}

	if err := g.SaveTurn(ctx, "alice", turn, setup); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	turns, err := g.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 1 || turns[0].UserQuery != "hello" || turns[0].AIResponse != "hi" {
		t.Fatalf("round trip mismatch: %+v", turns)
	}

	// Audit tier received its own copy keyed by user.
	var count int
	err = g.auditDB.QueryRow(
		"SELECT COUNT(*) FROM chat_history WHERE user = ?", "alice").Scan(&count)
	if err != nil {
		t.Fatalf("audit query error = %v", err)
	}
	if count != 1 {
		t.Errorf("audit rows = %d, want 1", count)
	}
}

func TestGateway_UsersAreIsolated(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	setup := &WindowSetup{WindowIndex: 0, ConversationID: "conv-1"}
	if err := g.SaveTurn(ctx, "alice", &TurnRecord{UserQuery: "q", AIResponse: "a"}, setup); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	turns, err := g.History(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("bob sees %d of alice's turns", len(turns))
	}
}

func TestGateway_ConcurrentUsers(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	users := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				setup := &WindowSetup{WindowIndex: 0, ConversationID: "conv-" + user}
				if err := g.SaveTurn(ctx, user, &TurnRecord{UserQuery: "q", AIResponse: "a"}, setup); err != nil {
					t.Errorf("SaveTurn(%s) error = %v", user, err)
					return
				}
			}
		}(user)
	}
	wg.Wait()

	for _, user := range users {
		turns, err := g.History(ctx, user, 0)
		if err != nil {
			t.Fatalf("History(%s) error = %v", user, err)
		}
		if len(turns) != 10 {
			t.Errorf("user %s has %d turns, want 10", user, len(turns))
		}
	}
}

func TestGateway_SaveUploads(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	nameMap := map[string]string{
		"01HZX.txt": "policy.txt",
		"01HZY.md":  "handbook.md",
	}
	if err := g.SaveUploads(ctx, "alice", "conv-1", nameMap); err != nil {
		t.Fatalf("SaveUploads() error = %v", err)
	}

	records, err := g.Uploads(ctx, "alice", "conv-1")
	if err != nil {
		t.Fatalf("Uploads() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	got := make(map[string]string)
	for _, r := range records {
		got[r.TempName] = r.OriginalName
	}
	for temp, orig := range nameMap {
		if got[temp] != orig {
			t.Errorf("mapping %q = %q, want %q", temp, got[temp], orig)
		}
	}
}

func TestGateway_DeleteAndRenumber(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	for w := 0; w < 2; w++ {
		setup := &WindowSetup{WindowIndex: w, ConversationID: "conv-" + string(rune('a'+w))}
		if err := g.SaveTurn(ctx, "alice", &TurnRecord{UserQuery: "q", AIResponse: "a"}, setup); err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}

	if err := g.DeleteAndRenumber(ctx, "alice", 0); err != nil {
		t.Fatalf("DeleteAndRenumber() error = %v", err)
	}

	indexes, err := g.WindowIndexes(ctx, "alice")
	if err != nil {
		t.Fatalf("WindowIndexes() error = %v", err)
	}
	if len(indexes) != 1 || indexes[0] != 0 {
		t.Errorf("indexes = %v, want [0]", indexes)
	}

	setup, err := g.WindowSetup(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("WindowSetup() error = %v", err)
	}
	if setup.ConversationID != "conv-b" {
		t.Errorf("surviving window conversation = %q, want conv-b", setup.ConversationID)
	}
}

func TestSanitizeUser(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"alice.chen", "alice.chen"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"user name", "user_name"},
	}
	for _, tt := range tests {
		if got := sanitizeUser(tt.in); got != tt.want {
			t.Errorf("sanitizeUser(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGateway_AuditFailureIsNotAuthoritative(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	// Break the audit tier only; the per-user tier stays authoritative and
	// must keep accepting writes.
	if err := g.auditDB.Close(); err != nil {
		t.Fatalf("closing audit store: %v", err)
	}

	setup := &WindowSetup{WindowIndex: 0, ConversationID: "conv-1", Mode: "internal", ModelID: "qwen2"}
	if err := g.SaveTurn(ctx, "alice", &TurnRecord{UserQuery: "q", AIResponse: "a"}, setup); err != nil {
		t.Fatalf("SaveTurn() error = %v, want nil when only the audit tier fails", err)
	}

	turns, err := g.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 1 || turns[0].UserQuery != "q" {
		t.Fatalf("per-user row missing after audit failure: %+v", turns)
	}
}
