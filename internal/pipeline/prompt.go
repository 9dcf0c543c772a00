package pipeline

import (
	"fmt"
	"strings"

	"github.com/fablepress/fable/internal/story"
)

// PromptInput carries everything the prompt builder needs for one page.
type PromptInput struct {
	ChildName  string
	Gender     string
	Appearance string // vision hint, may be empty
	Title      string
	Page       story.Page
}

// BuildPagePrompt assembles the illustration prompt for one page. The
// caption instruction quotes the page text verbatim so the rendered
// lettering matches the outline.
func BuildPagePrompt(in PromptInput) string {
	noun, pronoun := genderWords(in.Gender)

	var b strings.Builder
	fmt.Fprintf(&b, "Create a warm, Disney-inspired children's storybook illustration for a tale titled %q. ", in.Title)
	fmt.Fprintf(&b, "The hero is a young %s named %s; %s appears on every page of the book. ", noun, in.ChildName, pronoun)
	if hint := strings.TrimSpace(in.Appearance); hint != "" {
		fmt.Fprintf(&b, "The %s looks like this: %s. ", noun, hint)
	}
	b.WriteString("Keep the hero's face, hair, and clothing consistent with the other pages of this story. ")

	scene := strings.TrimSpace(in.Page.Prompt)
	if scene == "" {
		scene = strings.TrimSpace(in.Page.Scene)
	}
	fmt.Fprintf(&b, "Scene for page %d: %s ", in.Page.Number, scene)

	fmt.Fprintf(&b, "At the bottom of the page, render this caption text EXACTLY as written: %q. ", in.Page.Caption)
	b.WriteString("Square full-bleed composition, soft painterly light, no watermarks, no signatures.")
	return b.String()
}

func genderWords(gender string) (noun, pronoun string) {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "girl", "female", "f":
		return "girl", "she"
	case "boy", "male", "m":
		return "boy", "he"
	default:
		return "child", "they"
	}
}
