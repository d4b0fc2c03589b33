package extract

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, also the file names under schemas/.
const (
	SchemaClassification = "classification"
	SchemaFullAnalysis   = "full_analysis"
)

var (
	schemaMu       sync.Mutex
	compiledSchema = map[string]*gojsonschema.Schema{}
)

// rawSchema returns the JSON Schema text for name.
func rawSchema(name string) ([]byte, error) {
	b, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("extract: unknown schema %q", name)
	}
	return b, nil
}

func getSchema(name string) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := compiledSchema[name]; ok {
		return s, nil
	}
	raw, err := rawSchema(name)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract: compiling %s schema: %w", name, err)
	}
	compiledSchema[name] = s
	return s, nil
}

// Validate checks data against the named schema. It returns the list of
// violations, empty when data is valid, and an error only when validation
// could not run (unknown schema, malformed JSON).
func Validate(name string, data []byte) ([]string, error) {
	s, err := getSchema(name)
	if err != nil {
		return nil, err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("extract: validating against %s: %w", name, err)
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}

// SchemaError reports a model reply that is not a valid record of the
// requested schema.
type SchemaError struct {
	Schema   string
	Problems []string
	Reply    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("extract: reply does not match %s schema: %s", e.Schema, strings.Join(e.Problems, "; "))
}
