// Package persistence reads and writes the demo dataset: demo-data.json and
// its script-embeddable twin demo-data.js.
package persistence

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agentstation/demorefresh/pkg/constants"
	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/errors"
)

// Options controls where Save writes.
type Options struct {
	// JSONPath is the demo-data.json destination. Required.
	JSONPath string

	// JSPath is the demo-data.js destination. Empty skips the JS file.
	JSPath string

	// Variable is the global the JS file assigns to.
	// Defaults to constants.DefaultJSVariable.
	Variable string
}

// Load reads a previously written dataset. A missing or blank file is an
// empty dataset. A file that exists but cannot be decoded is an
// *errors.ParseError: overwriting a cache we cannot read could lose data.
func Load(path string) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataset.New(), nil
		}
		return nil, errors.WrapIO("read", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return dataset.New(), nil
	}

	ds := dataset.New()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, errors.NewParseError("json", path, "cannot decode prior dataset", err)
	}
	if ds.Skills == nil {
		ds.Skills = []dataset.Item{}
	}
	if ds.Memories == nil {
		ds.Memories = []dataset.Item{}
	}
	return ds, nil
}

// Encode renders ds as 2-space indented JSON without HTML escaping.
func Encode(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return buf.Bytes(), nil
}

// EncodeJS wraps encoded JSON in a global assignment:
// "<variable> = <json>;\n".
func EncodeJS(encoded []byte, variable string) []byte {
	if variable == "" {
		variable = constants.DefaultJSVariable
	}
	var buf bytes.Buffer
	buf.Grow(len(encoded) + len(variable) + 5)
	buf.WriteString(variable)
	buf.WriteString(" = ")
	buf.Write(bytes.TrimRight(encoded, "\n"))
	buf.WriteString(";\n")
	return buf.Bytes()
}

// Save writes ds to the configured files. Both files are staged before
// either is replaced, so a JS destination that cannot be written leaves
// demo-data.json as it was. An empty dataset is refused with an *errors.AllDataMissingError and
// nothing is written.
func Save(ds *dataset.Dataset, opts Options) error {
	if ds == nil || ds.IsEmpty() {
		return errors.NewAllDataMissingError(0, nil)
	}
	if opts.JSONPath == "" {
		return &errors.ValidationError{Field: "output", Message: "path is required"}
	}

	encoded, err := Encode(ds)
	if err != nil {
		return err
	}

	files := []pending{{path: opts.JSONPath, data: encoded}}
	if opts.JSPath != "" {
		files = append(files, pending{path: opts.JSPath, data: EncodeJS(encoded, opts.Variable)})
	}
	return commit(files)
}

// pending is a file to be written by commit.
type pending struct {
	path string
	data []byte
	tmp  string
}

// commit stages every file before renaming any, so a failure to create,
// write or sync one of them leaves all destinations untouched.
func commit(files []pending) error {
	discard := func() {
		for _, f := range files {
			if f.tmp != "" {
				_ = os.Remove(f.tmp)
			}
		}
	}

	for i := range files {
		tmp, err := stage(files[i].path, files[i].data)
		if err != nil {
			discard()
			return err
		}
		files[i].tmp = tmp
	}

	for i, f := range files {
		if err := os.Rename(f.tmp, f.path); err != nil {
			discard()
			return errors.WrapIO("rename", f.path, err)
		}
		files[i].tmp = ""
	}
	return nil
}

// WriteAtomic replaces path with data via a temporary file in the same
// directory, so readers never observe a partial file.
func WriteAtomic(path string, data []byte) error {
	return commit([]pending{{path: path, data: data}})
}

// stage writes data to a synced temporary file next to path and returns
// its name.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", errors.WrapIO("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", errors.WrapIO("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", errors.WrapIO("close", path, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		cleanup()
		return "", errors.WrapIO("chmod", path, err)
	}
	return tmpPath, nil
}
