// Package questionnaire interprets schema-less survey documents: it parses them,
// numbers the answerable questions, gates respondents on config directives and
// translates between questions and the flat field keys used on the wire.
package questionnaire

import (
	"bytes"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	KindHeader      = "header"
	KindConfig      = "config"
	KindText        = "text"
	KindRadio       = "radio"
	KindCheckbox    = "checkbox"
	KindTree        = "tree"
	KindCheckTree   = "checktree"
	KindScaleMatrix = "scale-matrix"
)

// Choice is one entry of a choices mapping. Leaves declared as plain strings
// carry the string as Title; subtrees carry their own Choices.
type Choice struct {
	Key     string
	Title   string
	Choices []Choice
}

// Definition is one document of the questionnaire stream.
//
// Choices is nil when the document has no choices key at all and
// non-nil (possibly empty) when it does.
type Definition struct {
	ID      int
	Kind    string
	Title   string
	Choices []Choice
	Lines   []string
	Config  Config
	Attrs   map[string]any
}

func (d Definition) Numbered() bool {
	return d.Kind != KindHeader && d.Kind != KindConfig
}

// Choice looks up a direct (top level) choice by key.
func (d Definition) Choice(key string) (Choice, bool) {
	for _, c := range d.Choices {
		if c.Key == key {
			return c, true
		}
	}
	return Choice{}, false
}

// ChoiceKeys lists the top level choice keys in declaration order.
func (d Definition) ChoiceKeys() []string {
	keys := make([]string, len(d.Choices))
	for i, c := range d.Choices {
		keys[i] = c.Key
	}
	return keys
}

// Parse reads a multi-document YAML stream, one question per document,
// keeping document order and mapping key order.
func Parse(src []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))

	var defs []Definition
	var errs *multierror.Error
	for i := 1; ; i++ {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// the decoder cannot resume after a syntax error
			return nil, multierror.Append(errs, errors.Wrapf(err, "document %d", i))
		}

		root := resolve(&doc)
		if root.Kind == yaml.DocumentNode {
			if len(root.Content) == 0 {
				continue
			}
			root = resolve(root.Content[0])
		}
		if isNull(root) {
			continue
		}

		def, err := parseDefinition(root)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "document %d", i))
			continue
		}
		defs = append(defs, def)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return defs, nil
}

func parseDefinition(n *yaml.Node) (Definition, error) {
	if n.Kind != yaml.MappingNode {
		return Definition{}, errors.Errorf("line %d: question must be a mapping", n.Line)
	}

	var def Definition
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := resolve(n.Content[i]).Value, resolve(n.Content[i+1])

		var err error
		switch key {
		case "kind":
			def.Kind, err = scalar(value)
		case "title":
			def.Title, err = scalar(value)
		case "choices":
			def.Choices, err = parseChoices(value)
		case "lines":
			def.Lines, err = parseLines(value)
		case "config":
			if isNull(value) {
				continue
			}
			err = value.Decode(&def.Config)
		default:
			var v any
			err = value.Decode(&v)
			if def.Attrs == nil {
				def.Attrs = map[string]any{}
			}
			def.Attrs[key] = v
		}
		if err != nil {
			return Definition{}, errors.Wrapf(err, "key %q", key)
		}
	}

	if def.Kind == "" {
		return Definition{}, errors.Errorf("line %d: missing kind", n.Line)
	}
	return def, nil
}

func parseChoices(n *yaml.Node) ([]Choice, error) {
	if isNull(n) {
		return []Choice{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errors.Errorf("line %d: choices must be a mapping", n.Line)
	}

	choices := make([]Choice, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		c := Choice{Key: resolve(n.Content[i]).Value}
		value := resolve(n.Content[i+1])

		switch {
		case isNull(value):
		case value.Kind == yaml.ScalarNode:
			c.Title = value.Value
		case value.Kind == yaml.MappingNode:
			for j := 0; j+1 < len(value.Content); j += 2 {
				sub := resolve(value.Content[j+1])
				var err error
				switch resolve(value.Content[j]).Value {
				case "title":
					c.Title, err = scalar(sub)
				case "choices":
					c.Choices, err = parseChoices(sub)
				}
				if err != nil {
					return nil, errors.Wrapf(err, "choice %q", c.Key)
				}
			}
		default:
			return nil, errors.Errorf("line %d: choice %q must be a label or a mapping", value.Line, c.Key)
		}
		choices = append(choices, c)
	}
	return choices, nil
}

func parseLines(n *yaml.Node) ([]string, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("line %d: lines must be a sequence", n.Line)
	}

	lines := make([]string, len(n.Content))
	for i, item := range n.Content {
		line, err := scalar(resolve(item))
		if err != nil {
			return nil, err
		}
		lines[i] = line
	}
	return lines, nil
}

func scalar(n *yaml.Node) (string, error) {
	if isNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", errors.Errorf("line %d: expected a scalar", n.Line)
	}
	return n.Value, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// resolve follows aliases to the anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
