package dictionary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/oklog/ulid/v2"
)

const (
	inputFileName  = "user.csv"
	outputFileName = "user.dic"
	encodingUTF8   = "utf-8"
)

// CompileRequest is what a Compiler receives: the system dictionary location,
// the MeCab-format entry file, the artifact path to produce and the
// input/output character encoding.
type CompileRequest struct {
	SystemDictionary string
	Input            string
	Output           string
	Encoding         string
}

// Compiler turns an entry file into a dictionary artifact.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) error
}

// Compiled is a dictionary artifact owned by one run. It is never modified
// after Build returns.
type Compiled struct {
	Path    string // the artifact
	Dir     string // the scratch directory holding it
	Entries int
	Digest  string // SHA-256 of the artifact bytes
}

// Empty reports whether the artifact holds no custom terms.
func (c *Compiled) Empty() bool { return c == nil || c.Entries == 0 }

// Remove deletes the artifact's scratch directory.
func (c *Compiled) Remove() error {
	if c == nil || c.Dir == "" {
		return nil
	}
	return os.RemoveAll(c.Dir)
}

// Builder compiles entry sets into per-run artifacts. Every Build uses its own
// scratch directory, so concurrent builds never share files.
type Builder struct {
	ScratchRoot string // defaults to os.TempDir()
	Compiler    Compiler
	Logger      *slog.Logger
}

// NewBuilder creates a builder using compiler; nil means KagomeCompiler.
func NewBuilder(scratchRoot string, compiler Compiler) *Builder {
	if compiler == nil {
		compiler = KagomeCompiler{}
	}
	return &Builder{ScratchRoot: scratchRoot, Compiler: compiler}
}

// Build compiles entries against systemDictionary. An empty entry set still
// produces an artifact. Failures are DictionaryBuild errors and leave no
// scratch files behind.
func (b *Builder) Build(ctx context.Context, entries []Entry, systemDictionary string) (_ *Compiled, err error) {
	prepared := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e = e.withDefaults()
		if verr := e.Validate(); verr != nil {
			return nil, apperr.DictionaryBuildf("entry %q: %v", e.Surface, verr)
		}
		prepared = append(prepared, e)
	}
	prepared, dropped := Dedupe(prepared)
	if dropped > 0 {
		b.logger().Warn("ignoring duplicate dictionary entries", "dropped", dropped)
	}

	root := b.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	dir, err := os.MkdirTemp(root, "goodthings-dict-"+ulid.Make().String()+"-")
	if err != nil {
		return nil, apperr.DictionaryBuildf("create scratch directory: %v", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	var src strings.Builder
	for _, e := range prepared {
		src.WriteString(e.Line())
		src.WriteByte('\n')
	}
	input := filepath.Join(dir, inputFileName)
	if err := os.WriteFile(input, []byte(src.String()), 0o600); err != nil {
		return nil, apperr.DictionaryBuildf("write entry file: %v", err)
	}

	req := CompileRequest{
		SystemDictionary: systemDictionary,
		Input:            input,
		Output:           filepath.Join(dir, outputFileName),
		Encoding:         encodingUTF8,
	}
	compiler := b.Compiler
	if compiler == nil {
		compiler = KagomeCompiler{}
	}
	if err := compiler.Compile(ctx, req); err != nil {
		if apperr.KindOf(err) == 0 {
			err = apperr.DictionaryBuildf("%v", err)
		}
		return nil, err
	}

	data, err := os.ReadFile(req.Output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.DictionaryBuildf("compiler produced no artifact at %s", req.Output)
		}
		return nil, apperr.DictionaryBuildf("read artifact: %v", err)
	}
	sum := sha256.Sum256(data)

	compiled := &Compiled{
		Path:    req.Output,
		Dir:     dir,
		Entries: len(prepared),
		Digest:  hex.EncodeToString(sum[:]),
	}
	b.logger().Debug("compiled user dictionary", "entries", compiled.Entries, "path", compiled.Path)
	return compiled, nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

func checkEncoding(enc string) error {
	if enc != "" && !strings.EqualFold(enc, encodingUTF8) {
		return fmt.Errorf("unsupported encoding %q", enc)
	}
	return nil
}
