package feed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/roach88/skein/internal/knot"
)

//go:embed schema.cue
var schemaCUE string

// Supported batch file extensions.
var extensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".cue":  true,
}

// cue.Context is not safe for concurrent use.
var (
	cueMu  sync.Mutex
	cueCtx = cuecontext.New()
	schema cue.Value
)

func batchSchema() (cue.Value, error) {
	if !schema.Exists() {
		v := cueCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			return cue.Value{}, err
		}
		schema = v.LookupPath(cue.ParsePath("#Batch"))
	}
	return schema, nil
}

// IsBatchFile reports whether path has a supported batch extension.
// Hidden files and editor backups are never batch files.
func IsBatchFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return extensions[strings.ToLower(filepath.Ext(base))]
}

// ListBatchFiles returns the batch files in dir sorted by name.
func ListBatchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list batch files: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsBatchFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadBatch reads and validates a batch file.
// All failures are *LoadError.
func LoadBatch(path string) (knot.Batch, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return knot.Batch{}, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"}
	}
	if err != nil {
		return knot.Batch{}, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !extensions[ext] {
		return knot.Batch{}, &LoadError{Code: ErrCodeUnsupported, Path: path,
			Message: fmt.Sprintf("unsupported extension %q (want .json, .yaml, .yml or .cue)", ext)}
	}
	return ParseBatch(path, ext, data)
}

// ParseBatch validates data in the format named by ext (".json", ".yaml",
// ".yml" or ".cue"). name is used in error positions.
func ParseBatch(name, ext string, data []byte) (knot.Batch, error) {
	cueMu.Lock()
	defer cueMu.Unlock()

	s, err := batchSchema()
	if err != nil {
		return knot.Batch{}, &LoadError{Code: ErrCodeInternal, Path: name, Message: fmt.Sprintf("batch schema: %v", err)}
	}

	v, err := compile(name, ext, data)
	if err != nil {
		return knot.Batch{}, err
	}

	unified := s.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return knot.Batch{}, cueLoadError(ErrCodeSchema, name, err)
	}

	var batch knot.Batch
	if err := unified.Decode(&batch); err != nil {
		return knot.Batch{}, cueLoadError(ErrCodeDecode, name, err)
	}
	normalize(&batch)
	return batch, nil
}

func compile(name, ext string, data []byte) (cue.Value, error) {
	switch ext {
	case ".json":
		expr, err := cuejson.Extract(name, data)
		if err != nil {
			return cue.Value{}, cueLoadError(ErrCodeParse, name, err)
		}
		v := cueCtx.BuildExpr(expr)
		if err := v.Err(); err != nil {
			return cue.Value{}, cueLoadError(ErrCodeParse, name, err)
		}
		return v, nil

	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cue.Value{}, &LoadError{Code: ErrCodeParse, Path: name, Message: err.Error()}
		}
		if doc == nil {
			doc = map[string]any{}
		}
		v := cueCtx.Encode(doc)
		if err := v.Err(); err != nil {
			return cue.Value{}, cueLoadError(ErrCodeParse, name, err)
		}
		return v, nil

	case ".cue":
		v := cueCtx.CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return cue.Value{}, cueLoadError(ErrCodeParse, name, err)
		}
		return v, nil

	default:
		return cue.Value{}, &LoadError{Code: ErrCodeUnsupported, Path: name,
			Message: fmt.Sprintf("unsupported format %q", ext)}
	}
}

// cueLoadError converts a CUE error to a LoadError, keeping the first
// position CUE reports.
func cueLoadError(code, name string, err error) *LoadError {
	le := &LoadError{Code: code, Path: name, Message: err.Error()}
	var ce cueerrors.Error
	if errors.As(err, &ce) {
		le.Message = strings.TrimSpace(cueerrors.Details(err, nil))
		if pos := ce.Position(); pos.IsValid() {
			le.Pos = pos
		}
	}
	return le
}

// normalize replaces nil lists with empty ones so decoded batches compare
// equal regardless of source format.
func normalize(b *knot.Batch) {
	if b.Updates == nil {
		b.Updates = []knot.Knot{}
	}
	if b.RemovedIDs == nil {
		b.RemovedIDs = []int64{}
	}
	for i := range b.Updates {
		if b.Updates[i].Children == nil {
			b.Updates[i].Children = []int64{}
		}
	}
}
