package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mroshb/impostor_bot/internal/words"
)

// Prints a summary of a word list and optionally converts it to the JSON
// format with hint metadata.
func main() {
	out := flag.String("json", "", "write the entries to this JSON file")
	rows := flag.Int("rows", 5, "number of entries to print")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: inspect_words [-json out.json] [-rows N] <words.txt|words.json|words.xlsx>")
	}
	path := flag.Arg(0)

	entries, err := words.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	seen := make(map[string]bool, len(entries))
	var duplicates []string
	withHints := 0
	for i, e := range entries {
		key := strings.ToLower(e.Word)
		if seen[key] {
			duplicates = append(duplicates, e.Word)
		}
		seen[key] = true

		if len(words.NewSource([]words.Entry{e}).Hints(e.Word)) > 0 {
			withHints++
		}
		if i < *rows {
			fmt.Printf("Row %d: %s %v\n", i, e.Word, e.Hints)
		}
	}

	fmt.Printf("Entries: %d\n", len(entries))
	fmt.Printf("With hints: %d\n", withHints)
	if len(duplicates) > 0 {
		fmt.Printf("Duplicates (%d): %s\n", len(duplicates), strings.Join(duplicates, ", "))
	}

	if *out == "" {
		return
	}

	data, err := json.MarshalIndent(map[string]any{
		"metadata": map[string]any{"source": path, "count": len(entries)},
		"words":    entries,
	}, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %s\n", *out)
}
