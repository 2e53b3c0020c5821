package dom

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// regexp2 keeps a shared clock goroutine alive while match timeouts are in use.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}

func TestWatcher_Run(t *testing.T) {
	initial := txt("a·b")
	p := el("p", nil, initial)
	root := el("body", nil, p)
	tree := newMemTree(root)

	log := zaptest.NewLogger(t)
	w := NewWatcher(tree, tree, NewWalker(tree, upper{}, nil, log), log)

	// subtree inserted after initial pass
	added := txt("c·d")
	sub := el("div", nil, el("span", nil, added))
	sub.parent = root
	root.children = append(root.children, sub)

	// text node inserted directly and leaf modified in place
	direct := txt("e·f")
	direct.parent = p
	p.children = append(p.children, direct)

	hidden := txt("g·h")
	script := el("script", nil, hidden)
	script.parent = root
	root.children = append(root.children, script)

	tree.changes <- []Change[*memNode]{
		{Kind: ChangeKindInserted, Node: sub},
		{Kind: ChangeKindInserted, Node: direct},
		{Kind: ChangeKindInserted, Node: script},
	}
	tree.changes <- []Change[*memNode]{{Kind: ChangeKindContent, Node: initial}}
	close(tree.changes)

	// changes queued before Run are only seen after the initial pass, so
	// nodes they reference get processed exactly once more
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, tc := range []struct {
		name string
		leaf *memNode
		want string
	}{
		{"initial", initial, "A·B"},
		{"subtree", added, "C·D"},
		{"direct", direct, "E·F"},
		{"excluded", hidden, "g·h"},
	} {
		if tc.leaf.text != tc.want {
			t.Errorf("%s leaf = %q, want %q", tc.name, tc.leaf.text, tc.want)
		}
	}
	if w.State() != StateIdle {
		t.Errorf("State() = %v, want %v", w.State(), StateIdle)
	}
}

func TestEnums_Text(t *testing.T) {
	tests := []struct {
		v    interface{ MarshalText() ([]byte, error) }
		want string
	}{
		{StateIdle, "idle"},
		{StateDraining, "draining"},
		{ChangeKindInserted, "inserted"},
		{ChangeKindContent, "content"},
	}
	for _, tt := range tests {
		got, err := tt.v.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		if string(got) != tt.want {
			t.Errorf("MarshalText() = %q, want %q", got, tt.want)
		}
	}

	if k, err := ParseChangeKind("content"); err != nil || k != ChangeKindContent {
		t.Errorf("ParseChangeKind() = %v, %v, want %v", k, err, ChangeKindContent)
	}
	if _, err := ParseState("busy"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ParseState() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestWatcher_Cancel(t *testing.T) {
	root := el("body", nil, el("p", nil, txt("a·b")))
	tree := newMemTree(root)
	w := NewWatcher(tree, tree, NewWalker(tree, upper{}, nil, nil), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
}

func TestWatcher_DrainContainsFailures(t *testing.T) {
	broken := txt("a·b")
	broken.panicText = true
	fine := txt("c·d")
	detached := txt("e·f")
	root := el("body", nil, el("p", nil, broken, fine))
	tree := newMemTree(root)
	w := NewWatcher(tree, tree, NewWalker(tree, upper{}, nil, nil), zaptest.NewLogger(t))

	stats := w.Drain([]Change[*memNode]{
		{Kind: ChangeKindContent, Node: broken},
		{Kind: ChangeKindContent, Node: detached},
		{Kind: ChangeKindContent, Node: fine},
	})

	if want := (WalkStats{Visited: 2, Changed: 1, Failed: 1}); stats != want {
		t.Errorf("Drain() = %+v, want %+v", stats, want)
	}
	if fine.text != "C·D" {
		t.Errorf("leaf = %q, want %q", fine.text, "C·D")
	}
}
