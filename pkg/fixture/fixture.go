// Package fixture decodes YAML documents describing a class hierarchy and
// pre-decoded methods into inputs for the type-flow analyzer.
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"

	"github.com/bytecode-tools/typeflow"
	"github.com/bytecode-tools/typeflow/typeexec"
)

// Document is the YAML form of a fixture.
type Document struct {
	Classes []ClassSpec  `yaml:"classes"`
	Methods []MethodSpec `yaml:"methods"`
}

// ClassSpec declares one class of the hierarchy.
type ClassSpec struct {
	Name       string   `yaml:"name"`
	Super      string   `yaml:"super"`
	Interfaces []string `yaml:"interfaces"`
}

// MethodSpec declares one method body in assembler form.
type MethodSpec struct {
	Owner     string         `yaml:"owner"`
	Name      string         `yaml:"name"`
	Desc      string         `yaml:"desc"`
	Static    bool           `yaml:"static"`
	MaxLocals int            `yaml:"maxLocals"`
	MaxStack  int            `yaml:"maxStack"`
	Code      []string       `yaml:"code"`
	TryCatch  []TryCatchSpec `yaml:"tryCatch"`
	Expect    *Expectation   `yaml:"expect"`
}

// TryCatchSpec is an exception table entry. Positions are instruction
// indexes or @label references.
type TryCatchSpec struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Handler string `yaml:"handler"`
	Type    string `yaml:"type"`
}

// Expectation records the outcome a method is expected to produce.
type Expectation struct {
	Outcome     string `yaml:"outcome"`
	Kind        string `yaml:"kind"`
	Index       *int   `yaml:"index"`
	Unreachable []int  `yaml:"unreachable"`
}

// Fixture is a decoded document.
type Fixture struct {
	// Classes keeps declaration order for listings.
	Classes   *sequencedmap.Map[string, typeexec.ClassInfo]
	Hierarchy *typeexec.StaticHierarchy
	Methods   []*typeflow.Method
	// Labels maps each method ID to its label -> index table.
	Labels map[string]map[string]int
	// Expectations maps each method ID to its declared expectation.
	Expectations map[string]*Expectation
}

// Load reads and decodes a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a fixture document, rejecting unknown keys.
func Parse(data []byte) (*Fixture, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty fixture document")
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return Build(&doc)
}

// Build converts a decoded document into analyzer inputs.
func Build(doc *Document) (*Fixture, error) {
	f := &Fixture{
		Classes:      sequencedmap.New[string, typeexec.ClassInfo](),
		Labels:       make(map[string]map[string]int),
		Expectations: make(map[string]*Expectation),
	}

	for i, c := range doc.Classes {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("class %d: missing name", i)
		}
		if _, dup := f.Classes.Get(name); dup {
			return nil, fmt.Errorf("class %s: declared twice", name)
		}
		f.Classes.Set(name, typeexec.ClassInfo{
			Name:       name,
			Super:      strings.TrimSpace(c.Super),
			Interfaces: c.Interfaces,
		})
	}
	infos := make([]typeexec.ClassInfo, 0, f.Classes.Len())
	for _, info := range f.Classes.All() {
		infos = append(infos, info)
	}
	f.Hierarchy = typeexec.NewStaticHierarchy(infos...)

	seen := make(map[string]bool, len(doc.Methods))
	for i := range doc.Methods {
		spec := &doc.Methods[i]
		m, labels, err := buildMethod(spec)
		if err != nil {
			return nil, fmt.Errorf("method %d (%s.%s): %w", i, spec.Owner, spec.Name, err)
		}
		id := m.ID()
		if seen[id] {
			return nil, fmt.Errorf("method %s: declared twice", id)
		}
		seen[id] = true
		if err := spec.Expect.validate(); err != nil {
			return nil, fmt.Errorf("method %s: %w", id, err)
		}
		f.Methods = append(f.Methods, m)
		f.Labels[id] = labels
		if spec.Expect != nil {
			f.Expectations[id] = spec.Expect
		}
	}
	return f, nil
}

func buildMethod(spec *MethodSpec) (*typeflow.Method, map[string]int, error) {
	if spec.Owner == "" || spec.Name == "" || spec.Desc == "" {
		return nil, nil, errors.New("owner, name and desc are required")
	}
	code, labels, err := Assemble(spec.Code)
	if err != nil {
		return nil, nil, err
	}
	m := &typeflow.Method{
		Owner:        spec.Owner,
		Name:         spec.Name,
		Desc:         spec.Desc,
		Static:       spec.Static,
		MaxLocals:    spec.MaxLocals,
		MaxStack:     spec.MaxStack,
		Instructions: code,
	}
	for i, tc := range spec.TryCatch {
		start, err := resolvePosition(tc.Start, labels)
		if err != nil {
			return nil, nil, fmt.Errorf("tryCatch %d start: %w", i, err)
		}
		end, err := resolvePosition(tc.End, labels)
		if err != nil {
			return nil, nil, fmt.Errorf("tryCatch %d end: %w", i, err)
		}
		handler, err := resolvePosition(tc.Handler, labels)
		if err != nil {
			return nil, nil, fmt.Errorf("tryCatch %d handler: %w", i, err)
		}
		m.TryCatch = append(m.TryCatch, typeflow.TryCatch{
			Start:   start,
			End:     end,
			Handler: handler,
			Type:    strings.TrimSpace(tc.Type),
		})
	}
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	return m, labels, nil
}

func (e *Expectation) validate() error {
	if e == nil {
		return nil
	}
	switch e.Outcome {
	case "success", "failure", "cancelled":
	default:
		return fmt.Errorf("expect: unknown outcome %q", e.Outcome)
	}
	if e.Kind != "" && e.Outcome != "failure" {
		return fmt.Errorf("expect: kind %q requires outcome failure", e.Kind)
	}
	return nil
}

// Method returns the method with the given ID (owner.name+desc).
func (f *Fixture) Method(id string) (*typeflow.Method, bool) {
	for _, m := range f.Methods {
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// LabelsAt inverts the label table of a method: index -> label names.
func (f *Fixture) LabelsAt(id string) map[int][]string {
	out := make(map[int][]string)
	for name, idx := range f.Labels[id] {
		out[idx] = append(out[idx], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}
