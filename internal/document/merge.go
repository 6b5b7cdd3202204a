package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	mocheerrors "moche.dev/moche/internal/errors"
)

// valueColumn is the column at which written values start when the name fits.
const valueColumn = 40

// Merge parses text and merges it into target.
func Merge[T any](text string, target *T, schema *Schema[T]) error {
	nodes, err := Parse(text)
	if err != nil {
		return err
	}
	return schema.apply(target, nodes)
}

// MergeFile reads the document at path and merges it into target.
// Parse and schema errors carry the file name.
func MergeFile[T any](path string, target *T, schema *Schema[T]) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := Merge(string(data), target, schema); err != nil {
		return mocheerrors.WithFile(err, path)
	}
	return nil
}

// Load allocates a new T with the schema defaults and merges every file into it in order.
func Load[T any](schema *Schema[T], paths ...string) (*T, error) {
	v := schema.New()
	for _, p := range paths {
		if err := MergeFile(p, v, schema); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Marshal renders v in document format.
func Marshal[T any](v *T, schema *Schema[T]) []byte {
	w := &writer{}
	schema.write(w, v, 0)
	return w.buf.Bytes()
}

// Write renders v in document format to out.
func Write[T any](out io.Writer, v *T, schema *Schema[T]) error {
	_, err := out.Write(Marshal(v, schema))
	return err
}

// WriteFile renders v to path, creating the parent directory if needed.
func WriteFile[T any](path string, v *T, schema *Schema[T]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	//nolint:gosec // documents are not secret
	if err := os.WriteFile(path, Marshal(v, schema), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) line(depth int, name, value string) {
	prefix := strings.Repeat("  ", depth) + name
	w.buf.WriteString(prefix)
	if value != "" {
		pad := 1
		if width := runewidth.StringWidth(prefix); width+1 < valueColumn {
			pad = valueColumn - width
		}
		w.buf.WriteString(strings.Repeat(" ", pad))
		w.buf.WriteString(value)
	}
	w.buf.WriteByte('\n')
}

func (w *writer) block(depth int, name string) {
	w.buf.WriteString(strings.Repeat("  ", depth))
	w.buf.WriteString("[" + name + "]\n")
}
