package words

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mroshb/impostor_bot/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// MinWordLength drops fragments from plain word lists.
const MinWordLength = 3

// Load reads the dictionary at path and falls back to the built-in list when
// the file is missing, unreadable or empty. It never fails.
func Load(path string) *Source {
	if path == "" {
		logger.Warn("No word list configured, using fallback words", "count", len(Fallback))
		return FromWords(Fallback)
	}

	entries, err := ReadFile(path)
	if err != nil {
		logger.Warn("Failed to load word list, using fallback words", "path", path, "error", err)
		return FromWords(Fallback)
	}
	if len(entries) == 0 {
		logger.Warn("Word list is empty, using fallback words", "path", path)
		return FromWords(Fallback)
	}

	src := NewSource(entries)
	logger.Info("Loaded word list", "path", path, "words", src.Len(), "with_hints", len(src.hints))
	return src
}

// ReadFile parses a word file, choosing the format by extension: .txt (one
// word per line), .json (enhanced word data) or .xlsx (word, hints).
func ReadFile(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readJSON(path)
	case ".xlsx":
		return readSpreadsheet(path)
	case ".txt", "":
		return readText(path)
	default:
		return nil, fmt.Errorf("unsupported word file format %q", filepath.Ext(path))
	}
}

func readText(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if utf8.RuneCountInString(line) < MinWordLength {
			continue
		}
		entries = append(entries, Entry{Word: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

type enhancedFile struct {
	Metadata map[string]any `json:"metadata"`
	Words    []Entry        `json:"words"`
}

func readJSON(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file enhancedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	entries := file.Words[:0]
	for _, e := range file.Words {
		e.Word = strings.TrimSpace(e.Word)
		if e.Word != "" {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func readSpreadsheet(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in %s", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	var entries []Entry
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		w := strings.TrimSpace(row[0])
		if w == "" || (i == 0 && strings.EqualFold(w, "word")) {
			continue
		}

		entry := Entry{Word: w}
		if len(row) > 1 {
			for _, h := range strings.Split(row[1], ";") {
				if h = strings.TrimSpace(h); h != "" {
					entry.Hints = append(entry.Hints, h)
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
