package valid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pgxn/meta-go/grammar"
	"github.com/pgxn/meta-go/schema"
)

// newCompiler returns a jsonschema compiler with every embedded schema
// document registered under its $id, format assertions enabled, and the
// custom path, glob, and license formats installed.
func newCompiler() (*jsonschema.Compiler, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	c.Formats["path"] = isPath
	c.Formats["glob"] = isGlob
	c.Formats["license"] = isLicense

	err := fs.WalkDir(schema.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".schema.json") {
			return nil
		}
		data, err := schema.FS.ReadFile(path)
		if err != nil {
			return err
		}
		var doc struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if doc.ID == "" {
			return fmt.Errorf("missing $id in %s", path)
		}
		if err := c.AddResource(doc.ID, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// isPath passes any string without a parent directory segment. Non-strings
// pass; the type keyword rejects them. The typed model applies the stricter
// grammar.CheckPath rules.
func isPath(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// isGlob passes any valid glob pattern without a parent directory segment.
func isGlob(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	if !doublestar.ValidatePattern(s) {
		return false
	}
	return isPath(v)
}

// isLicense passes any valid SPDX license expression.
func isLicense(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	return grammar.CheckLicense(s) == nil
}
