package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/liliang-cn/ragdesk/internal/domain"
)

// needs a running Redis; set REDIS_TEST_ADDR to enable
func TestHistoryCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	c := NewHistoryCache(client, time.Minute, time.Second)
	session := "test-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, historyKey(session), dirtyKey(session))

	if _, ok, err := c.Get(ctx, session); err != nil || ok {
		t.Fatalf("Get on empty = ok %v, err %v", ok, err)
	}

	msgs := []*domain.Message{
		{ID: 1, SessionID: session, Role: domain.RoleUser, Content: "hi", Timestamp: time.Now().UTC()},
		{ID: 2, SessionID: session, Role: domain.RoleAssistant, Content: "hello", Timestamp: time.Now().UTC()},
	}
	if err := c.Fill(ctx, session, msgs); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	next := &domain.Message{ID: 3, SessionID: session, Role: domain.RoleUser, Content: "again"}
	if err := c.Append(ctx, session, next, 2); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, ok, err := c.Get(ctx, session)
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if len(got) != 2 || got[0].Content != "hello" || got[1].Content != "again" {
		t.Errorf("Get after Append = %+v", got)
	}

	if err := c.Invalidate(ctx, session); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, session); ok {
		t.Error("Get after Invalidate still hit")
	}

	// dirty: a stale fill is refused until the marker expires
	if err := c.Fill(ctx, session, msgs); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if _, ok, _ := c.Get(ctx, session); ok {
		t.Error("Fill stored a window while the session was dirty")
	}

	time.Sleep(1100 * time.Millisecond)
	if err := c.Fill(ctx, session, msgs); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if _, ok, _ := c.Get(ctx, session); !ok {
		t.Error("Fill after the marker expired did not store")
	}
}

func TestAppendWindow(t *testing.T) {
	msg := func(id int64) *domain.Message { return &domain.Message{ID: id} }

	got, changed := appendWindow([]*domain.Message{msg(1), msg(2), msg(3)}, msg(4), 3)
	if !changed || len(got) != 3 || got[0].ID != 2 || got[2].ID != 4 {
		t.Errorf("appendWindow trimmed to %v (changed %v), want ids 2..4", ids(got), changed)
	}

	// already present when the filler loaded it from the database
	got, changed = appendWindow([]*domain.Message{msg(1), msg(2)}, msg(2), 3)
	if changed || len(got) != 2 {
		t.Errorf("appendWindow duplicated a message: %v", ids(got))
	}

	got, changed = appendWindow(nil, msg(1), 3)
	if !changed || len(got) != 1 {
		t.Errorf("appendWindow on empty window = %v", ids(got))
	}
}

func TestKeys(t *testing.T) {
	if got := historyKey("abc"); got != "ragdesk:history:abc" {
		t.Errorf("historyKey = %q", got)
	}
	if got := dirtyKey("abc"); got != "ragdesk:history:dirty:abc" {
		t.Errorf("dirtyKey = %q", got)
	}
}

func ids(msgs []*domain.Message) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
