package pipeline

import (
	"strings"
	"testing"

	"github.com/fablepress/fable/internal/story"
)

func TestBuildPagePrompt(t *testing.T) {
	page := story.Page{
		Number:  7,
		Caption: "Maya tiptoed past the sleeping giant.",
		Prompt:  "Maya on tiptoe in a vast stone hall.",
		Scene:   "A huge hall with a sleeping giant.",
	}

	got := BuildPagePrompt(PromptInput{
		ChildName:  "Maya",
		Gender:     "girl",
		Appearance: "curly brown hair and round glasses",
		Title:      "Maya Riding Hood",
		Page:       page,
	})

	for _, want := range []string{
		`"Maya Riding Hood"`,
		"young girl named Maya",
		"curly brown hair and round glasses",
		"Scene for page 7: Maya on tiptoe in a vast stone hall.",
		`EXACTLY as written: "Maya tiptoed past the sleeping giant."`,
		"consistent",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildPagePrompt_SceneFallback(t *testing.T) {
	got := BuildPagePrompt(PromptInput{
		ChildName: "Leo",
		Gender:    "boy",
		Title:     "Little Leo and the Beanstalk",
		Page: story.Page{
			Number:  2,
			Caption: "Off to market.",
			Scene:   "A boy leads a cow down a lane.",
		},
	})

	if !strings.Contains(got, "Scene for page 2: A boy leads a cow down a lane.") {
		t.Errorf("expected scene fallback in prompt:\n%s", got)
	}
	if !strings.Contains(got, "young boy named Leo") {
		t.Errorf("expected boy phrasing:\n%s", got)
	}
}

func TestBuildPagePrompt_GenderWords(t *testing.T) {
	tests := []struct {
		gender  string
		noun    string
		pronoun string
	}{
		{"girl", "girl", "she"},
		{"Female", "girl", "she"},
		{"boy", "boy", "he"},
		{"M", "boy", "he"},
		{"", "child", "they"},
		{"nonbinary", "child", "they"},
	}
	for _, tt := range tests {
		noun, pronoun := genderWords(tt.gender)
		if noun != tt.noun || pronoun != tt.pronoun {
			t.Errorf("genderWords(%q) = %s/%s, want %s/%s", tt.gender, noun, pronoun, tt.noun, tt.pronoun)
		}
	}
}

func TestBuildPagePrompt_NoAppearanceHint(t *testing.T) {
	got := BuildPagePrompt(PromptInput{
		ChildName: "Maya",
		Gender:    "girl",
		Title:     "T",
		Page:      story.Page{Number: 1, Caption: "c", Prompt: "p"},
	})
	if strings.Contains(got, "looks like this") {
		t.Errorf("prompt should omit appearance clause when hint is empty:\n%s", got)
	}
}
