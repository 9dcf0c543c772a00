package story

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) error {
	t.Helper()
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func TestParseTemplate_Builtins(t *testing.T) {
	for _, name := range []string{"lrrh", "jatb"} {
		t.Run(name, func(t *testing.T) {
			data, err := builtinFS.ReadFile("stories/" + name + ".yaml")
			if err != nil {
				t.Fatalf("missing built-in story: %v", err)
			}
			tpl, err := ParseTemplate(data)
			if err != nil {
				t.Fatalf("built-in story failed validation: %v", err)
			}
			if tpl.ID != name {
				t.Errorf("expected id %s, got %s", name, tpl.ID)
			}
			if len(tpl.Pages) != TotalPages {
				t.Errorf("expected %d pages, got %d", TotalPages, len(tpl.Pages))
			}
			if !strings.Contains(tpl.Title, "{child_name}") {
				t.Errorf("title should carry the name placeholder: %q", tpl.Title)
			}
		})
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing title", "id: x\ngender: girl\npages:\n  - number: 1\n    caption: hi\n"},
		{"bad gender", "id: x\ntitle: T\ngender: other\npages:\n  - number: 1\n    caption: hi\n"},
		{"no pages", "id: x\ntitle: T\ngender: girl\npages: []\n"},
		{"missing caption", "id: x\ntitle: T\ngender: girl\npages:\n  - number: 1\n"},
		{"page gap", "id: x\ntitle: T\ngender: girl\npages:\n  - number: 1\n    caption: a\n  - number: 3\n    caption: b\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTemplate([]byte(tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBuildOutline(t *testing.T) {
	tpl := &Template{
		ID:     "lrrh",
		Title:  "{child_name} Riding Hood",
		Gender: "girl",
		Pages: []PageTemplate{
			{Number: 1, Caption: "Once upon a time, {child_name} set out.", Prompt: "{child_name} on the path to {title}."},
			{Number: 2, Caption: "The end.", Scene: "A cottage at dusk."},
		},
	}

	out, err := BuildOutline(tpl, "Maya")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Title != "Maya Riding Hood" {
		t.Errorf("expected derived title, got %q", out.Title)
	}
	if out.Pages[0].Caption != "Once upon a time, Maya set out." {
		t.Errorf("caption not substituted: %q", out.Pages[0].Caption)
	}
	if !strings.Contains(out.Pages[0].Prompt, "Maya Riding Hood") {
		t.Errorf("title placeholder not substituted in prompt: %q", out.Pages[0].Prompt)
	}
	if out.Pages[1].Scene != "A cottage at dusk." {
		t.Errorf("scene altered: %q", out.Pages[1].Scene)
	}
}

func TestBuildOutline_RequiresName(t *testing.T) {
	tpl := &Template{ID: "x", Title: "T", Pages: []PageTemplate{{Number: 1, Caption: "a"}}}
	if _, err := BuildOutline(tpl, "   "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestStore_EnsureDefaultsAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if err := s.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}

	tpl, err := s.Load("lrrh")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tpl.Gender != "girl" {
		t.Errorf("expected girl story, got %s", tpl.Gender)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 stories, got %d", len(list))
	}
	if list[0].ID != "jatb" || list[1].ID != "lrrh" {
		t.Errorf("expected sorted ids, got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestStore_ForGender(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}

	tests := []struct {
		gender string
		want   string
	}{
		{"girl", "lrrh"},
		{"Girl", "lrrh"},
		{"female", "lrrh"},
		{"boy", "jatb"},
		{"", "jatb"},
		{"unknown", "jatb"},
	}
	for _, tt := range tests {
		tpl, err := s.ForGender(tt.gender)
		if err != nil {
			t.Fatalf("ForGender(%q) failed: %v", tt.gender, err)
		}
		if tpl.ID != tt.want {
			t.Errorf("ForGender(%q) = %s, want %s", tt.gender, tpl.ID, tt.want)
		}
	}
}

func TestStore_LocalEditsWin(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}

	// Re-running must not clobber existing files.
	custom := "id: lrrh\ntitle: \"Custom {child_name}\"\ngender: girl\npages:\n  - number: 1\n    caption: \"Hi {child_name}.\"\n"
	if err := writeFile(t, dir, "lrrh.yaml", custom); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}

	fresh := NewStore(dir)
	tpl, err := fresh.Load("lrrh")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tpl.Title != "Custom {child_name}" {
		t.Errorf("local edit was clobbered: %q", tpl.Title)
	}
}
