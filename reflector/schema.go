package reflector

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Schema is a file of class declarations:
//
//	classes:
//	  - type: echo.Echo
//	    name: Echo
//	    members:
//	      - {kind: method, go: Echo}
//	      - {kind: property, go: Prefix, writable: true}
//	      - {kind: events, go: Events}
type Schema struct {
	Classes []ClassSpec `yaml:"classes"`
}

// ParseSchema decodes a YAML schema.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Load("parse class schema", err)
	}
	for i, c := range s.Classes {
		if c.Type == "" {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Path("classes", c.Name).
				Detail("class %d has no type", i).
				Build()
		}
		for _, m := range c.Members {
			switch m.Kind {
			case Method, Property, Constructor, Events:
			default:
				return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
					Path("classes", c.Type, m.Go).
					Detail("unknown member kind %q", m.Kind).
					Build()
			}
		}
	}
	return &s, nil
}

// LoadSchema reads a YAML schema from r and registers every class in it.
func (b *Builder) LoadSchema(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Load("read class schema", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range s.Classes {
		c := s.Classes[i]
		b.named[c.Type] = &c
	}
	return nil
}

// LoadSchemaFile registers the classes of a YAML schema file.
func (b *Builder) LoadSchemaFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Load("open class schema", err)
	}
	defer f.Close()
	return b.LoadSchema(f)
}
