package catalog

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/stenoarena/internal/model"
)

// importFile is the YAML layout accepted by Import:
//
//	tests:
//	  - name: Shorthand 1
//	    date: 2026-10-18
//	    start: "09:00"
//	    duration: 10
//	    paragraph: >
//	      The text to dictate.
type importFile struct {
	Tests []model.TestDraft `yaml:"tests"`
}

// Import creates every test listed in a YAML document. Nothing is stored
// unless all entries are valid.
func (c *Catalog) Import(ctx context.Context, r io.Reader) ([]model.TestDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file importFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: import file is empty", ErrInvalidTest)
		}
		return nil, fmt.Errorf("failed to decode import file: %w", err)
	}
	if len(file.Tests) == 0 {
		return nil, fmt.Errorf("%w: import file lists no tests", ErrInvalidTest)
	}
	return c.CreateMany(ctx, file.Tests)
}
