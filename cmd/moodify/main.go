// Moodify recolours web pages to match a mood.
//
// It applies mood palettes, dark mode and colour-vision filters to HTML documents
// while keeping text readable, and can keep a set of pages live as settings change.
package main

import (
	"github.com/jmylchreest/moodify/internal/cli"
)

func main() {
	cli.Execute()
}
