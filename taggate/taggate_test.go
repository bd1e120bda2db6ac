package taggate

import (
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestAddRemoveList(t *testing.T) {
	t.Parallel()

	g, err := NewSetGate("")
	if err != nil {
		t.Fatalf("NewSetGate() error = %v", err)
	}
	g.Add("sports")
	g.Add("news")
	g.Add("sports")
	g.Add("")

	if got, want := g.List(), []string{"news", "sports"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}

	g.Remove("news")
	g.Remove("absent")
	if got, want := g.List(), []string{"sports"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("List() after remove = %v, want %v", got, want)
	}
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tags.json")
	g, err := NewSetGate(path)
	if err != nil {
		t.Fatalf("NewSetGate() error = %v", err)
	}
	g.Add("sports")
	g.Add("movies")
	g.Remove("movies")

	restored, err := NewSetGate(path)
	if err != nil {
		t.Fatalf("NewSetGate(restore) error = %v", err)
	}
	if got, want := restored.List(), []string{"sports"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("restored List() = %v, want %v", got, want)
	}
}

func TestConcurrentMutation(t *testing.T) {
	t.Parallel()

	g, err := NewSetGate("")
	if err != nil {
		t.Fatalf("NewSetGate() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Add("sports")
				g.List()
				g.Remove("sports")
			}
		}()
	}
	wg.Wait()
}
