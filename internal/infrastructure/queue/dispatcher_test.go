package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

type op struct {
	session string
	save    bool
	email   string
}

type recordingStore struct {
	mu  sync.Mutex
	ops []op
}

func (s *recordingStore) Save(_ context.Context, sessionID string, id domain.Identity, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op{session: sessionID, save: true, email: id.Email})
	return nil
}

func (s *recordingStore) Load(context.Context, string) (*domain.Identity, error) { return nil, nil }

func (s *recordingStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op{session: sessionID})
	return nil
}

func TestDispatcher_PreservesPerSessionOrder(t *testing.T) {
	store := &recordingStore{}
	d := NewDispatcher(4, store, zerolog.Nop())
	d.Start()

	const sessions, rounds = 8, 20
	for r := 0; r < rounds; r++ {
		for s := 0; s < sessions; s++ {
			sid := fmt.Sprintf("s%d", s)
			d.Enqueue(ports.SnapshotWrite{SessionID: sid, SignedIn: true, Identity: domain.Identity{Email: fmt.Sprintf("r%d", r)}})
			d.Enqueue(ports.SnapshotWrite{SessionID: sid})
		}
	}
	d.Close()

	seen := make(map[string][]op)
	for _, o := range store.ops {
		seen[o.session] = append(seen[o.session], o)
	}
	if len(seen) != sessions {
		t.Fatalf("expected %d sessions, got %d", sessions, len(seen))
	}
	for sid, ops := range seen {
		if len(ops) != 2*rounds {
			t.Fatalf("%s: expected %d writes, got %d", sid, 2*rounds, len(ops))
		}
		for i, o := range ops {
			wantSave := i%2 == 0
			if o.save != wantSave {
				t.Fatalf("%s: write %d out of order", sid, i)
			}
			if wantSave && o.email != fmt.Sprintf("r%d", i/2) {
				t.Fatalf("%s: write %d carries %q", sid, i, o.email)
			}
		}
	}
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	store := &recordingStore{}
	d := NewDispatcher(1, store, zerolog.Nop())
	d.Start()
	d.Close()
	d.Close()

	d.Enqueue(ports.SnapshotWrite{SessionID: "s1", SignedIn: true})
	if len(store.ops) != 0 {
		t.Fatalf("expected no writes after close, got %+v", store.ops)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &recordingStore{}, zerolog.Nop())
	first := d.shardIndex("6f1c2a4e")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("6f1c2a4e"); got != first {
			t.Fatalf("shard changed from %d to %d", first, got)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard %d out of range", first)
	}
}
