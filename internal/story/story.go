// Package story manages the built-in story templates: loading, schema
// validation, gender-based selection, and outline construction with
// child-name substitution.
package story

import (
	"fmt"
	"strings"
)

// TotalPages is the fixed page count of every book.
const TotalPages = 12

// PageTemplate is one page of a story template before substitution.
type PageTemplate struct {
	Number  int    `yaml:"number" json:"number"`
	Caption string `yaml:"caption" json:"caption"`
	Prompt  string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Scene   string `yaml:"scene,omitempty" json:"scene,omitempty"`
}

// Template is a full story template as stored on disk. Title and page
// text may contain {child_name} and {title} placeholders.
type Template struct {
	ID     string         `yaml:"id" json:"id"`
	Title  string         `yaml:"title" json:"title"`
	Gender string         `yaml:"gender" json:"gender"`
	Pages  []PageTemplate `yaml:"pages" json:"pages"`
}

// Page is one resolved page of an outline.
type Page struct {
	Number  int
	Caption string
	Prompt  string
	Scene   string
}

// Outline is a story resolved for one child: title derived, placeholders
// substituted, pages ordered 1..TotalPages.
type Outline struct {
	StoryID string
	Title   string
	Pages   []Page
}

// BuildOutline resolves tpl for the given child name.
func BuildOutline(tpl *Template, childName string) (*Outline, error) {
	name := strings.TrimSpace(childName)
	if name == "" {
		return nil, fmt.Errorf("child name is required")
	}
	if len(tpl.Pages) == 0 {
		return nil, fmt.Errorf("story %q has no pages", tpl.ID)
	}

	title := substitute(tpl.Title, name, "")

	out := &Outline{
		StoryID: tpl.ID,
		Title:   title,
		Pages:   make([]Page, 0, len(tpl.Pages)),
	}
	for _, p := range tpl.Pages {
		out.Pages = append(out.Pages, Page{
			Number:  p.Number,
			Caption: substitute(p.Caption, name, title),
			Prompt:  substitute(p.Prompt, name, title),
			Scene:   substitute(p.Scene, name, title),
		})
	}
	return out, nil
}

// substitute fills the {child_name} and {title} placeholders.
func substitute(text, name, title string) string {
	text = strings.ReplaceAll(text, "{child_name}", name)
	if title != "" {
		text = strings.ReplaceAll(text, "{title}", title)
	}
	return text
}
