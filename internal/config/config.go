// Package config loads list settings from YAML or CUE files.
//
// Both formats are checked against the embedded CUE definition #Config,
// which also supplies the defaults. Relative database paths are resolved
// against the directory of the configuration file.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlist"
	"github.com/roach88/sqlist/codec"
	"github.com/roach88/sqlist/internal/store"
	"github.com/roach88/sqlist/keys"
)

//go:embed schema.cue
var schemaSrc string

// ErrUnsupportedFormat is returned for files that are neither YAML nor CUE.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// File is the on-disk form of a list configuration.
type File struct {
	Path         string `json:"path,omitempty" yaml:"path"`
	Table        string `json:"table" yaml:"table"`
	Codec        string `json:"codec" yaml:"codec"`
	Key          string `json:"key,omitempty" yaml:"key"`
	KeepExisting bool   `json:"keep_existing" yaml:"keep_existing"`
	AutoRemove   bool   `json:"auto_remove" yaml:"auto_remove"`
	Strategy     string `json:"strategy" yaml:"strategy"`
	HeadScan     bool   `json:"head_scan" yaml:"head_scan"`
	BatchSize    int    `json:"batch_size" yaml:"batch_size"`
}

// Default returns the configuration of an empty file.
func Default() File {
	return File{
		Path:      store.MemoryPath,
		Table:     store.DefaultTable,
		Codec:     codec.Default.Name(),
		Strategy:  sqlist.SortRekey.String(),
		BatchSize: sqlist.DefaultBatchSize,
	}
}

// Load reads the configuration at path. The format follows the extension:
// .yaml and .yml for YAML, .cue for CUE. An empty path returns Default().
func Load(path string) (File, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}

	cctx := cuecontext.New()
	var v cue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := decodeYAML(data)
		if err != nil {
			return File{}, fmt.Errorf("%s: %w", path, err)
		}
		v = cctx.Encode(raw)
	case ".cue":
		v = cctx.CompileBytes(data, cue.Filename(path))
	default:
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err := v.Err(); err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}

	f, err := validate(cctx, v)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}

	if f.Path == "" {
		f.Path = store.MemoryPath
	} else if f.Path != store.MemoryPath && !filepath.IsAbs(f.Path) {
		f.Path = filepath.Join(filepath.Dir(path), f.Path)
	}
	return f, nil
}

// decodeYAML decodes a YAML document into a plain map. Unknown keys and
// mistyped values are rejected with their line numbers before the schema
// sees the document.
func decodeYAML(data []byte) (map[string]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var strict File
	if err := dec.Decode(&strict); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// validate unifies v with #Config and decodes the result.
func validate(cctx *cue.Context, v cue.Value) (File, error) {
	schema := cctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return File{}, fmt.Errorf("compile schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return File{}, err
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return File{}, err
	}
	return f, nil
}

// ListConfig builds the list configuration described by f, for lists of
// dynamically typed values.
func (f File) ListConfig() (sqlist.Config[any], error) {
	c, err := codec.ByName(f.Codec)
	if err != nil {
		return sqlist.Config[any]{}, err
	}
	key, err := keys.Named(f.Key)
	if err != nil {
		return sqlist.Config[any]{}, err
	}
	strategy, err := sqlist.ParseSortStrategy(f.Strategy)
	if err != nil {
		return sqlist.Config[any]{}, err
	}

	return sqlist.Config[any]{
		Path:         f.Path,
		Table:        f.Table,
		Key:          key,
		Codec:        c,
		KeepExisting: f.KeepExisting,
		AutoRemove:   f.AutoRemove,
		Strategy:     strategy,
		HeadScan:     f.HeadScan,
		BatchSize:    f.BatchSize,
	}, nil
}
