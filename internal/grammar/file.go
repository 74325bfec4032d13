package grammar

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"tmcheck/internal/errs"
)

// Parse decodes a YAML grammar file and builds its table. Unknown keys are
// rejected so typos in rule definitions surface as configuration errors.
func Parse(data []byte) (*Table, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if err == io.EOF {
			return nil, errs.Configuration("grammar file is empty")
		}
		return nil, errs.WrapConfiguration(err, "failed to parse grammar YAML")
	}
	return New(spec)
}

// LoadFile reads and parses the grammar file at path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapConfiguration(err, "read grammar %s", path)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, errs.WrapConfiguration(err, "grammar file %s", path)
	}
	return t, nil
}
