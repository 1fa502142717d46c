package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/hiscore/internal/domain/types"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: best DESC, then updated_at DESC, then name ASC. The BST
// comparator treats "less" as "ranks earlier", so an in-order traversal
// yields the leaderboard from best to worst. Priorities are random, which
// keeps the expected depth logarithmic.

// treap node
type node struct {
	rec   types.Record
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, rec types.Record, prio uint64) *node {
	if n == nil {
		return &node{rec: rec, prio: prio, size: 1}
	}
	if rec.RanksBefore(n.rec) {
		n.left = insert(n.left, rec, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, rec, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// deleteNode removes the node holding exactly rec.
func deleteNode(n *node, rec types.Record) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.rec.Name == rec.Name:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, rec)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, rec)
		}
	case rec.RanksBefore(n.rec):
		n.left = deleteNode(n.left, rec)
	default:
		n.right = deleteNode(n.right, rec)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit records in rank order.
func collectTopN(n *node, limit int, out *[]types.Record) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.rec)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore keeps every best in memory. It is safe for concurrent use and
// loses its contents when the process exits.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	byName map[string]types.Record
	closed bool
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore() *TreapStore {
	return &TreapStore{byName: make(map[string]types.Record)}
}

// Backend implements Store.
func (s *TreapStore) Backend() string { return BackendMemory }

// Init implements Store. There is no schema to prepare.
func (s *TreapStore) Init(ctx context.Context) error {
	start := time.Now()
	err := s.check(ctx)
	observe(opInit, start, err)
	return err
}

// Ping implements Store.
func (s *TreapStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.check(ctx)
	observe(opPing, start, err)
	return err
}

func (s *TreapStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Merge implements Store.Merge with O(log n) expected time. The update time
// is part of the ordering key, so the node is always reinserted.
func (s *TreapStore) Merge(ctx context.Context, name string, score int64, at time.Time) (rec types.Record, improved bool, err error) {
	start := time.Now()
	defer func() { observe(opMerge, start, err) }()

	if err := ctx.Err(); err != nil {
		return types.Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Record{}, false, ErrClosed
	}

	rec = types.Record{Name: name, Best: score, UpdatedAt: at}
	improved = true
	if old, ok := s.byName[name]; ok {
		improved = score > old.Best
		rec.Best = max(old.Best, score)
		s.root = deleteNode(s.root, old)
	}
	s.byName[name] = rec
	s.root = insert(s.root, rec, rand.Uint64())
	return rec, improved, nil
}

// Get implements Store.Get in O(1).
func (s *TreapStore) Get(ctx context.Context, name string) (rec types.Record, err error) {
	start := time.Now()
	defer func() { observe(opGet, start, err) }()

	if err := s.check(ctx); err != nil {
		return types.Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byName[name]
	if !ok {
		return types.Record{}, ErrNotFound
	}
	return rec, nil
}

// TopN implements Store.TopN in O(log n + n) expected time.
func (s *TreapStore) TopN(ctx context.Context, n int) (out []types.Record, err error) {
	start := time.Now()
	defer func() { observe(opTopN, start, err) }()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out = make([]types.Record, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, &out)
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	err := s.check(ctx)
	observe(opCount, start, err)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName), nil
}

// Close releases the tree. Later calls fail with ErrClosed.
func (s *TreapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.root = nil
	s.byName = make(map[string]types.Record)
	return nil
}
