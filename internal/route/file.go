package route

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of route declarations.
//
//	routes:
//	  - command: hello
//	    uri: /hello/world
//	    method: GET
//	    authenticated: false
//	  - command: people-create
//	    uri: /people
//	    method: POST
//	    input: person
//	    authorize: principal.Admin
type File struct {
	Routes []FileEntry `yaml:"routes"`
}

// FileEntry declares the class-level route of one command.
type FileEntry struct {
	Command     string `yaml:"command"`
	Declaration `yaml:",inline"`
}

// ParseFile decodes route declarations.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse routes file: %w", err)
	}
	for i, e := range f.Routes {
		if e.Command == "" {
			return nil, fmt.Errorf("routes file entry %d: command is required", i)
		}
		if e.URI == "" {
			return nil, fmt.Errorf("routes file entry %d (%s): uri is required", i, e.Command)
		}
	}
	return &f, nil
}

// LoadFile reads path and declares every entry on the registrar.
func (r *Registrar) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read routes file: %w", err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return err
	}
	for _, e := range f.Routes {
		r.Declare(e.Command, e.Declaration)
	}
	return nil
}
