package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/linkedin/goavro/v2"
)

var ErrUnsupportedAvroType = errors.New("kafka: unsupported avro type")

// Column types produced from Avro fields.
const (
	TypeInt      = "int"
	TypeLong     = "long"
	TypeFloat    = "float"
	TypeDouble   = "double"
	TypeBoolean  = "boolean"
	TypeString   = "String"
	TypeBytes    = "byte[]"
	TypeDateTime = "DateTime"
)

// confluentMagic prefixes Avro payloads framed with a schema-registry id.
const confluentMagic = 0x0

// Schema is a parsed Avro record schema.
type Schema struct {
	Subject string
	Version string
	ID      int

	text   string
	codec  *goavro.Codec
	fields []field
}

type field struct {
	name     string
	colType  string
	nullable bool
}

func (*Schema) TypeName() string { return "avro.Schema" }

func (s *Schema) String() string { return s.text }

// ColumnDefinition names one table column and its type.
type ColumnDefinition struct {
	Name  string
	Type  string
	Field string // source Avro field, empty for metadata columns
}

func ParseSchema(text string) (*Schema, error) {
	codec, err := goavro.NewCodec(text)
	if err != nil {
		return nil, fmt.Errorf("parse avro schema: %w", err)
	}
	var rec struct {
		Type   string `json:"type"`
		Fields []struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, fmt.Errorf("parse avro schema: %w", err)
	}
	if rec.Type != "record" {
		return nil, fmt.Errorf("%w: top-level type %q is not a record", ErrUnsupportedAvroType, rec.Type)
	}
	s := &Schema{text: text, codec: codec}
	for _, f := range rec.Fields {
		t, nullable, err := columnType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		s.fields = append(s.fields, field{name: f.Name, colType: t, nullable: nullable})
	}
	return s, nil
}

func columnType(raw json.RawMessage) (string, bool, error) {
	if len(raw) == 0 {
		return "", false, fmt.Errorf("%w: missing type", ErrUnsupportedAvroType)
	}
	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return "", false, err
		}
		t, err := primitiveType(name, "")
		return t, false, err
	case '{':
		var obj struct {
			Type        string `json:"type"`
			LogicalType string `json:"logicalType"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", false, err
		}
		t, err := primitiveType(obj.Type, obj.LogicalType)
		return t, false, err
	case '[':
		var branches []json.RawMessage
		if err := json.Unmarshal(raw, &branches); err != nil {
			return "", false, err
		}
		if len(branches) != 2 {
			return "", false, fmt.Errorf("%w: union of %d branches", ErrUnsupportedAvroType, len(branches))
		}
		for i, b := range branches {
			if string(b) == `"null"` {
				t, _, err := columnType(branches[1-i])
				return t, true, err
			}
		}
		return "", false, fmt.Errorf("%w: union without null", ErrUnsupportedAvroType)
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnsupportedAvroType, raw)
}

func primitiveType(name, logical string) (string, error) {
	switch name {
	case "int":
		return TypeInt, nil
	case "long":
		if logical == "timestamp-millis" || logical == "timestamp-micros" {
			return TypeDateTime, nil
		}
		return TypeLong, nil
	case "float":
		return TypeFloat, nil
	case "double":
		return TypeDouble, nil
	case "boolean":
		return TypeBoolean, nil
	case "string", "enum":
		return TypeString, nil
	case "bytes", "fixed":
		return TypeBytes, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedAvroType, name)
}

// Columns maps every field through mapping, which may be nil.
func (s *Schema) Columns(mapping FieldNameMapping) []ColumnDefinition {
	if mapping == nil {
		mapping = directMapping
	}
	out := make([]ColumnDefinition, len(s.fields))
	for i, f := range s.fields {
		out[i] = ColumnDefinition{Name: mapping(f.name), Type: f.colType, Field: f.name}
	}
	return out
}

// Decode reads one binary record, with or without the registry header, and
// returns column values keyed by mapped column name.
func (s *Schema) Decode(payload []byte, mapping FieldNameMapping) (map[string]any, error) {
	native, err := s.native(payload)
	if err != nil {
		return nil, err
	}
	rec, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode avro: want record, got %T", native)
	}
	if mapping == nil {
		mapping = directMapping
	}
	row := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v := rec[f.name]
		if branch, ok := v.(map[string]any); ok && f.nullable && len(branch) == 1 {
			for _, inner := range branch {
				v = inner
			}
		}
		row[mapping(f.name)] = v
	}
	return row, nil
}

func (s *Schema) native(payload []byte) (any, error) {
	if len(payload) > 5 && payload[0] == confluentMagic {
		if id := int(binary.BigEndian.Uint32(payload[1:5])); s.ID == 0 || id == s.ID {
			if v, rest, err := s.codec.NativeFromBinary(payload[5:]); err == nil && len(rest) == 0 {
				return v, nil
			}
		}
	}
	v, rest, err := s.codec.NativeFromBinary(payload)
	if err != nil {
		return nil, fmt.Errorf("decode avro: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode avro: %d trailing bytes", len(rest))
	}
	return v, nil
}

// RegistryClient fetches schemas from a Confluent-compatible schema registry.
type RegistryClient struct {
	HTTP *http.Client
}

type registryVersion struct {
	Subject string `json:"subject"`
	Version int    `json:"version"`
	ID      int    `json:"id"`
	Schema  string `json:"schema"`
}

// Fetch gets subject at version, where version is a number or "latest".
func (c RegistryClient) Fetch(ctx context.Context, baseURL, subject, version string) (*Schema, error) {
	if version == "" {
		version = "latest"
	}
	u := strings.TrimRight(baseURL, "/") + "/subjects/" + url.PathEscape(subject) + "/versions/" + url.PathEscape(version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.schemaregistry.v1+json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema registry: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("schema registry: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schema registry: %s/%s: %s: %s", subject, version, resp.Status, strings.TrimSpace(string(body)))
	}
	var rv registryVersion
	if err := json.Unmarshal(body, &rv); err != nil {
		return nil, fmt.Errorf("schema registry: %w", err)
	}
	s, err := ParseSchema(rv.Schema)
	if err != nil {
		return nil, err
	}
	s.Subject, s.Version, s.ID = rv.Subject, fmt.Sprint(rv.Version), rv.ID
	return s, nil
}
