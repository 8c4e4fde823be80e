package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const bugReportYAML = `
name: BugReport
description: An issue or unexpected behavior in a system.
when_to_use: When someone reports a failure.
fields:
  - name: component
    description: Where the bug occurs.
    required: true
  - name: severity
    required: true
  - name: description
examples:
  - "The login page returns 500"
`

const serviceJSON = `{
  "name": "Service",
  "description": "A deployable service",
  "schema": {
    "type": "object",
    "properties": {
      "owner": {"type": "string", "description": "Owning team"},
      "tier": {"type": "string", "default": "3"}
    },
    "required": ["owner"]
  },
  "relationships": ["DEPENDS_ON"]
}`

func TestRegistry_Basics(t *testing.T) {
	r, err := NewRegistry(Builtins())
	require.NoError(t, err)

	assert.Equal(t, []string{"Preference", "Procedure", "Requirement"}, r.Names())

	s, err := r.Get("Preference")
	require.NoError(t, err)
	assert.Len(t, s.Fields, 4)

	_, err = r.Get("Nope")
	assert.ErrorIs(t, err, ErrUnknownShape)

	assert.ErrorIs(t, r.Register(Shape{}), ErrNameRequired)
}

func TestRegistry_CurrentIsACopy(t *testing.T) {
	r, err := NewRegistry(Builtins())
	require.NoError(t, err)

	snap := r.Current()
	delete(snap, "Preference")
	_, err = r.Get("Preference")
	assert.NoError(t, err)
}

func TestRegistry_Subset(t *testing.T) {
	r, err := NewRegistry(Builtins())
	require.NoError(t, err)

	got, missing := r.Subset([]string{"Procedure", "Ghost"})
	assert.Len(t, got, 1)
	assert.Contains(t, got, "Procedure")
	assert.Equal(t, []string{"Ghost"}, missing)
}

func TestRegistry_Replace(t *testing.T) {
	r, err := NewRegistry(Builtins())
	require.NoError(t, err)

	r.Replace([]Shape{{Name: "Only"}, {Name: ""}})
	assert.Equal(t, []string{"Only"}, r.Names())
}

func TestShape_Check(t *testing.T) {
	pref := Builtins()[1]

	attrs := map[string]string{"person": "Alice", "category": "tools", "preference": "vim"}
	assert.Empty(t, pref.Check(attrs))
	assert.Equal(t, "moderate", attrs["strength"], "default filled in")

	issues := pref.Check(map[string]string{"person": "Alice", "color": "red"})
	require.Len(t, issues, 3)
	assert.Equal(t, "category", issues[0].Field)
	assert.Equal(t, "preference", issues[1].Field)
	assert.Equal(t, "color", issues[2].Field)
	assert.Contains(t, issues[2].String(), "Field: 'color'")

	free := Shape{Name: "Anything"}
	assert.Empty(t, free.Check(map[string]string{"x": "y"}))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "development", "bug_report.yaml"), bugReportYAML)
	writeFile(t, filepath.Join(dir, "ops", "service.json"), serviceJSON)
	writeFile(t, filepath.Join(dir, "ops", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".hidden", "x.yaml"), "name: Hidden")
	writeFile(t, filepath.Join(dir, "misc", "unnamed.yml"), "description: no name here")

	shapes, err := LoadDir(dir, nil)
	require.NoError(t, err)

	byName := map[string]Shape{}
	for _, s := range shapes {
		byName[s.Name] = s
	}
	require.Len(t, byName, 3)
	assert.Contains(t, byName, "unnamed")

	bug := byName["BugReport"]
	assert.Len(t, bug.Fields, 3)
	assert.True(t, bug.Fields[0].Required)
	assert.Equal(t, "When someone reports a failure.", bug.WhenToUse)
	assert.Len(t, bug.Examples, 1)

	svc := byName["Service"]
	require.Len(t, svc.Fields, 2)
	owner, ok := svc.Field("owner")
	require.True(t, ok)
	assert.True(t, owner.Required)
	tier, _ := svc.Field("tier")
	assert.Equal(t, "3", tier.Default)
}

func TestLoadDir_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "development", "bug_report.yaml"), bugReportYAML)
	writeFile(t, filepath.Join(dir, "ops", "service.json"), serviceJSON)

	shapes, err := LoadDir(dir, []string{"ops"})
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, "Service", shapes[0].Name)
}

func TestLoadDir_BadFileDoesNotHideOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.yaml"), bugReportYAML)
	writeFile(t, filepath.Join(dir, "bad.json"), "{not json")

	shapes, err := LoadDir(dir, nil)
	assert.Error(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, "BugReport", shapes[0].Name)
}

func TestWatcher_HandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	w, err := NewWatcher(r, dir)
	require.NoError(t, err)
	defer w.watcher.Close()

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"yaml write", filepath.Join(dir, "a.yaml"), fsnotify.Write, true},
		{"json create", filepath.Join(dir, "a.json"), fsnotify.Create, true},
		{"remove", filepath.Join(dir, "a.yml"), fsnotify.Remove, true},
		{"chmod", filepath.Join(dir, "a.yaml"), fsnotify.Chmod, false},
		{"hidden", filepath.Join(dir, ".a.yaml"), fsnotify.Write, false},
		{"other extension", filepath.Join(dir, "a.txt"), fsnotify.Write, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op}))
		})
	}
}

func TestWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	w, err := NewWatcher(r, dir, WithBase(Builtins()), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	w.Reload()
	assert.Len(t, r.Names(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "bug.yaml"), bugReportYAML)

	require.Eventually(t, func() bool {
		_, err := r.Get("BugReport")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Len(t, r.Names(), 4)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
