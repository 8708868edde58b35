// Package scanner reconstructs a model dependency graph from SQL definition
// files. It extracts ref("name") and source("group", "table") markers and an
// inline config(key = value, ...) block using a small state machine rather
// than regular expressions, so markers inside comments and string literals
// are never matched.
package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Scanner walks a directory tree of SQL definition files.
type Scanner struct {
	logger *slog.Logger
}

// New creates a scanner. A nil logger discards all output.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{logger: logger}
}

// Scan recursively discovers .sql files under dir and parses each into a
// ModelNode. A parse failure for an individual file is logged and the file
// skipped; the scan as a whole never aborts on a single bad file.
func (s *Scanner) Scan(dir string) (*core.ModelGraph, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &core.ValidationError{Field: "models-dir", Message: fmt.Sprintf("cannot read %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return nil, &core.ValidationError{Field: "models-dir", Message: dir + " is not a directory"}
	}

	var models []*core.ModelNode

	walkErr := filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".sql") {
			return nil
		}
		if strings.HasPrefix(fi.Name(), ".") {
			return nil
		}

		node, err := s.parseFile(dir, path)
		if err != nil {
			s.logger.Warn("skipping model file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		models = append(models, node)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, walkErr)
	}

	graph := core.NewModelGraph(models)
	s.logger.Debug("scan complete",
		slog.Int("models", graph.Len()),
		slog.Int("refs", graph.RefCount),
		slog.Int("sources", graph.SourceCount))
	return graph, nil
}

// parseFile reads one definition file and extracts its markers.
func (s *Scanner) parseFile(baseDir, path string) (*core.ModelNode, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the scanned project directory
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	relPath, err := filepath.Rel(baseDir, path)
	if err != nil {
		relPath = filepath.Base(path)
	}

	return ParseContent(path, relPath, string(content))
}

// ParseContent parses SQL content into a ModelNode. The unit name is derived
// from the filename minus its extension.
func ParseContent(filePath, relPath, content string) (*core.ModelNode, error) {
	node := &core.ModelNode{
		Name:     strings.TrimSuffix(filepath.Base(filePath), ".sql"),
		FilePath: filePath,
		RelPath:  relPath,
		RawSQL:   content,
	}

	markers, err := extractMarkers(content)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, ref := range markers.refs {
		if !seen[ref] {
			node.Refs = append(node.Refs, ref)
			seen[ref] = true
		}
	}
	node.Sources = markers.sources
	node.Config = markers.config

	return node, nil
}

// markerSet collects the markers found in one file.
type markerSet struct {
	refs    []string
	sources []core.SourceRef
	config  map[string]any
}

// extractMarkers runs the tokenizer over the content. Markers are recognized
// only outside comments and string literals.
func extractMarkers(content string) (*markerSet, error) {
	out := &markerSet{}
	lex := &lexer{input: content}

	for !lex.eof() {
		switch {
		case lex.consumeLineComment(), lex.consumeBlockComment(), lex.consumeString():
			continue
		}

		if isIdentStart(lex.peek()) {
			word := lex.readIdent()
			switch word {
			case "ref":
				if args, ok := lex.tryCallArgs(1); ok {
					out.refs = append(out.refs, args[0])
					continue
				}
			case "source":
				if args, ok := lex.tryCallArgs(2); ok {
					out.sources = append(out.sources, core.SourceRef{Source: args[0], Table: args[1]})
					continue
				}
			case "config":
				cfg, ok, err := lex.tryConfigArgs()
				if err != nil {
					return nil, err
				}
				if ok {
					if out.config == nil {
						out.config = cfg
					} else {
						for k, v := range cfg {
							out.config[k] = v
						}
					}
					continue
				}
			}
			continue
		}

		lex.advance()
	}

	return out, nil
}

// lexer is a minimal cursor over the file content.
type lexer struct {
	input string
	pos   int
}

func (l *lexer) eof() bool { return l.pos >= len(l.input) }

func (l *lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) advance() { l.pos++ }

// consumeLineComment skips a -- comment through end of line.
func (l *lexer) consumeLineComment() bool {
	if l.peek() != '-' || l.peekAt(1) != '-' {
		return false
	}
	for !l.eof() && l.peek() != '\n' {
		l.advance()
	}
	return true
}

// consumeBlockComment skips a /* */ comment. An unterminated comment runs to EOF.
func (l *lexer) consumeBlockComment() bool {
	if l.peek() != '/' || l.peekAt(1) != '*' {
		return false
	}
	l.pos += 2
	for !l.eof() {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.pos += 2
			return true
		}
		l.advance()
	}
	return true
}

// consumeString skips a single- or double-quoted literal. A doubled quote
// inside a single-quoted SQL literal is an escape.
func (l *lexer) consumeString() bool {
	quote := l.peek()
	if quote != '\'' && quote != '"' {
		return false
	}
	l.advance()
	for !l.eof() {
		if l.peek() == quote {
			if quote == '\'' && l.peekAt(1) == '\'' {
				l.pos += 2
				continue
			}
			l.advance()
			return true
		}
		l.advance()
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// isWordBoundary reports whether the identifier starting at pos is not a
// suffix of a longer identifier (e.g. "source" inside "my_source").
func (l *lexer) isWordBoundary() bool {
	if l.pos == 0 {
		return true
	}
	return !isIdentByte(l.input[l.pos-1])
}

func (l *lexer) readIdent() string {
	if !l.isWordBoundary() {
		// Mid-identifier; consume one byte and report no word.
		l.advance()
		return ""
	}
	start := l.pos
	for !l.eof() && isIdentByte(l.peek()) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func (l *lexer) skipSpace() {
	for !l.eof() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

// tryCallArgs parses ( "arg" [, "arg"] ) with exactly want quoted arguments.
// On failure the cursor is restored and ok is false.
func (l *lexer) tryCallArgs(want int) ([]string, bool) {
	mark := l.pos
	l.skipSpace()
	if l.peek() != '(' {
		l.pos = mark
		return nil, false
	}
	l.advance()

	args := make([]string, 0, want)
	for i := 0; i < want; i++ {
		l.skipSpace()
		arg, ok := l.readQuoted()
		if !ok {
			l.pos = mark
			return nil, false
		}
		args = append(args, arg)
		l.skipSpace()
		if i < want-1 {
			if l.peek() != ',' {
				l.pos = mark
				return nil, false
			}
			l.advance()
		}
	}

	l.skipSpace()
	if l.peek() != ')' {
		l.pos = mark
		return nil, false
	}
	l.advance()
	return args, true
}

// readQuoted reads a 'single' or "double" quoted argument and strips the quotes.
func (l *lexer) readQuoted() (string, bool) {
	quote := l.peek()
	if quote != '\'' && quote != '"' {
		return "", false
	}
	l.advance()
	start := l.pos
	for !l.eof() && l.peek() != quote {
		l.advance()
	}
	if l.eof() {
		return "", false
	}
	val := l.input[start:l.pos]
	l.advance()
	return val, true
}

// tryConfigArgs parses config(key = value, ...) into a map with
// quote-stripping, boolean recognition, and numeric coercion.
func (l *lexer) tryConfigArgs() (map[string]any, bool, error) {
	mark := l.pos
	l.skipSpace()
	if l.peek() != '(' {
		l.pos = mark
		return nil, false, nil
	}
	l.advance()

	cfg := make(map[string]any)
	for {
		l.skipSpace()
		if l.peek() == ')' {
			l.advance()
			return cfg, true, nil
		}
		if l.eof() {
			return nil, false, fmt.Errorf("unterminated config block")
		}

		if !isIdentStart(l.peek()) {
			l.pos = mark
			return nil, false, nil
		}
		start := l.pos
		for !l.eof() && isIdentByte(l.peek()) {
			l.advance()
		}
		key := l.input[start:l.pos]

		l.skipSpace()
		if l.peek() != '=' {
			l.pos = mark
			return nil, false, nil
		}
		l.advance()
		l.skipSpace()

		val, err := l.readConfigValue()
		if err != nil {
			return nil, false, err
		}
		cfg[key] = val

		l.skipSpace()
		switch l.peek() {
		case ',':
			l.advance()
		case ')':
			l.advance()
			return cfg, true, nil
		default:
			return nil, false, fmt.Errorf("malformed config block near %q", key)
		}
	}
}

// readConfigValue reads one value of the restricted key = value grammar:
// a quoted string (quotes stripped), true/false, or a bare token coerced to
// a number when fully numeric.
func (l *lexer) readConfigValue() (any, error) {
	if l.peek() == '\'' || l.peek() == '"' {
		val, ok := l.readQuoted()
		if !ok {
			return nil, fmt.Errorf("unterminated string in config block")
		}
		return val, nil
	}

	start := l.pos
	for !l.eof() && l.peek() != ',' && l.peek() != ')' && l.peek() != '\n' {
		l.advance()
	}
	raw := strings.TrimSpace(l.input[start:l.pos])
	if raw == "" {
		return nil, fmt.Errorf("empty value in config block")
	}

	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	return raw, nil
}
