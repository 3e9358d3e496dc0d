// Package loader reads source documents (.pdf, .txt, .csv) into plain text.
package loader

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
	"github.com/mattn/go-runewidth"

	"helpdesk/internal/domain"
	"helpdesk/internal/logger"
)

// ErrUnsupported is wrapped by LoadError for files with an unknown extension.
var ErrUnsupported = errors.New("unsupported file format")

// LoadError describes why a source file was skipped.
type LoadError struct {
	Path string
	Op   string // "stat", "read", "parse", "unsupported"
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type extractFunc func(data []byte) (string, error)

// Loader dispatches on file extension.
type Loader struct {
	log        *logger.Logger
	extractors map[string]extractFunc
}

func New(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		log: log,
		extractors: map[string]extractFunc{
			".pdf": extractPDF,
			".txt": extractText,
			".csv": extractCSV,
		},
	}
}

// SupportedExtensions returns the lower-case extensions the loader understands.
func (l *Loader) SupportedExtensions() []string {
	return []string{".csv", ".pdf", ".txt"}
}

// Load reads a single file and converts it to a Document.
func (l *Loader) Load(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	extract, ok := l.extractors[ext]
	if !ok {
		return domain.Document{}, &LoadError{Path: path, Op: "unsupported", Err: ErrUnsupported}
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, &LoadError{Path: path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return domain.Document{}, &LoadError{Path: path, Op: "stat", Err: errors.New("is a directory")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, &LoadError{Path: path, Op: "read", Err: err}
	}
	text, err := extract(data)
	if err != nil {
		return domain.Document{}, &LoadError{Path: path, Op: "parse", Err: err}
	}
	return domain.Document{ID: hashString(path), Path: path, Content: text}, nil
}

// LoadAll expands patterns and loads every file it can. Files that cannot be
// loaded are skipped; the reasons are returned as warnings.
func (l *Loader) LoadAll(ctx context.Context, patterns []string) ([]domain.Document, []error) {
	var (
		docs     []domain.Document
		warnings []error
	)
	for _, path := range ExpandPaths(patterns) {
		doc, err := l.Load(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				warnings = append(warnings, err)
				break
			}
			l.log.Warn("skipping source", "path", path, "error", err)
			warnings = append(warnings, err)
			continue
		}
		l.log.Debug("loaded source", "path", path, "chars", utf8.RuneCountInString(doc.Content))
		docs = append(docs, doc)
	}
	return docs, warnings
}

// ExpandPaths resolves glob patterns, keeping literal paths that match
// nothing so that they surface as load warnings. Duplicates are dropped.
func ExpandPaths(patterns []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil || len(matches) == 0 {
			matches = []string{p}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func extractCSV(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("not valid UTF-8")
	}
	return CSVToText(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
}

// CSVToText renders a CSV table as column-aligned plain text: the header row
// followed by every record, each cell right-aligned to its column's width.
func CSVToText(r io.Reader) (string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return "", fmt.Errorf("csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}
	cols := 0
	for _, rec := range records {
		if len(rec) > cols {
			cols = len(rec)
		}
	}
	widths := make([]int, cols)
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.Join(strings.Fields(rec[i]), " ")
			if w := runewidth.StringWidth(rec[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	var sb strings.Builder
	for n, rec := range records {
		if n > 0 {
			sb.WriteByte('\n')
		}
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(runewidth.FillLeft(cell, widths[i]))
		}
	}
	return sb.String(), nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
