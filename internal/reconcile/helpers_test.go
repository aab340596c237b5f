package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/tree"
	"github.com/arborview/arbor/internal/types"
)

// fakeGateway records calls and fails on demand per method name.
type fakeGateway struct {
	calls    []string
	failOn   map[string]error
	moveRes  gateway.BatchMoveResult
	snapshot types.Snapshot
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failOn: make(map[string]error)}
}

func (g *fakeGateway) record(call string) error {
	g.calls = append(g.calls, call)
	return g.failOn[callName(call)]
}

func callName(call string) string {
	for i, r := range call {
		if r == '(' {
			return call[:i]
		}
	}
	return call
}

func (g *fakeGateway) MoveItem(ctx context.Context, itemID, newParentID string) error {
	return g.record(fmt.Sprintf("MoveItem(%s,%s)", itemID, newParentID))
}

func (g *fakeGateway) RenameItem(ctx context.Context, itemID, newName, kind string) error {
	return g.record(fmt.Sprintf("RenameItem(%s,%s,%s)", itemID, newName, kind))
}

func (g *fakeGateway) DeleteItems(ctx context.Context, itemIDs []string) error {
	return g.record(fmt.Sprintf("DeleteItems(%v)", itemIDs))
}

func (g *fakeGateway) BatchMoveItems(ctx context.Context, itemIDs []string, newParentID string) (gateway.BatchMoveResult, error) {
	err := g.record(fmt.Sprintf("BatchMoveItems(%v,%s)", itemIDs, newParentID))
	return g.moveRes, err
}

func (g *fakeGateway) UpdateSiblingOrder(ctx context.Context, parentID string, orderedChildIDs []string) error {
	return g.record(fmt.Sprintf("UpdateSiblingOrder(%s,%v)", parentID, orderedChildIDs))
}

func (g *fakeGateway) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	err := g.record(fmt.Sprintf("CreateFolder(%s,%s)", parentID, name))
	return "server-id", err
}

func (g *fakeGateway) FetchTreeSnapshot(ctx context.Context) (types.Snapshot, error) {
	err := g.record("FetchTreeSnapshot")
	return g.snapshot, err
}

// fakeCache counts stale marks and forced refetches.
type fakeCache struct {
	staleMarks int
	refetches  int
	refetchErr error
}

func (c *fakeCache) MarkStale() {
	c.staleMarks++
}

func (c *fakeCache) ForceRefetch(ctx context.Context) error {
	c.refetches++
	return c.refetchErr
}

// recordingNotifier collects emitted events.
type recordingNotifier struct {
	events []types.Event
}

func (n *recordingNotifier) Notify(e types.Event) {
	n.events = append(n.events, e)
}

func (n *recordingNotifier) last(t *testing.T) types.Event {
	t.Helper()
	if len(n.events) == 0 {
		t.Fatal("expected at least one event")
	}
	return n.events[len(n.events)-1]
}

// newTestStore creates root with folder F1 (containing file D2 and folder
// F2) and files D1, D3 at top level.
func newTestStore(t *testing.T) *tree.Store {
	t.Helper()
	s := tree.NewStore("root")
	s.Rebuild(types.Snapshot{
		RootID: "root",
		Folders: []types.Record{
			{ID: "F1", ParentID: "root", Name: "Projects", SortOrder: 0},
			{ID: "F2", ParentID: "F1", Name: "Old", SortOrder: 0},
		},
		Files: []types.Record{
			{ID: "D1", ParentID: "root", Name: "a.txt", SortOrder: 1},
			{ID: "D3", ParentID: "root", Name: "b.txt", SortOrder: 2},
			{ID: "D2", ParentID: "F1", Name: "report.md", SortOrder: 1},
		},
	})
	return s
}

// fixture bundles the wired handlers for a test.
type fixture struct {
	store  *tree.Store
	gw     *fakeGateway
	lock   *OpLock
	cache  *fakeCache
	notify *recordingNotifier

	rec     *Reconciler
	coord   *Coordinator
	actions *Actions

	cleared int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newTestStore(t),
		gw:     newFakeGateway(),
		lock:   NewOpLock(),
		cache:  &fakeCache{},
		notify: &recordingNotifier{},
	}
	f.rec = NewReconciler(f.store, f.gw, f.lock, f.cache, f.notify, 0.4)
	f.coord = NewCoordinator(f.store, f.gw, f.lock, f.cache, f.notify, func() { f.cleared++ })
	f.actions = NewActions(f.store, f.gw, f.lock, f.cache, f.notify, true)
	return f
}
