// Package stopwords loads the custom stopword list and merges chunk files into it.
package stopwords

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/stopword"
)

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

// Parse reads words separated by any run of whitespace, commas or semicolons.
func Parse(r io.Reader) (stopword.Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return stopword.Set{}, fmt.Errorf("read stopwords: %w", err)
	}
	return stopword.NewSet(strings.FieldsFunc(string(data), isSeparator)...), nil
}

// LoadFiles parses and merges the given files. A missing or unreadable file is
// a configuration error.
func LoadFiles(paths ...string) (stopword.Set, error) {
	var set stopword.Set
	for _, p := range paths {
		s, err := loadFile(p)
		if err != nil {
			return stopword.Set{}, err
		}
		set = set.Union(s)
	}
	return set, nil
}

func loadFile(path string) (stopword.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stopword.Set{}, fmt.Errorf("stopword file %s not found: %w", path, domain.ErrInvalidConfig)
		}
		return stopword.Set{}, fmt.Errorf("open stopword file %s: %w", path, domain.ErrInvalidConfig)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return stopword.Set{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Aggregate merges every file matching the glob pattern (doublestar syntax,
// e.g. "stopword-chunks/**/*.txt") and writes the sorted master list to out,
// one word per line. Returns the number of files merged and words written.
func Aggregate(pattern, out string) (files, words int, err error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, 0, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("no stopword chunks match %q: %w", pattern, domain.ErrInvalidConfig)
	}

	set, err := LoadFiles(matches...)
	if err != nil {
		return 0, 0, err
	}

	if err := writeList(out, set.Sorted()); err != nil {
		return 0, 0, err
	}
	return len(matches), set.Len(), nil
}

func writeList(path string, list []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, word := range list {
		if _, err := w.WriteString(word + "\n"); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
