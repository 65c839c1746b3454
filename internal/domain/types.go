package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue marshals v for storage in a json column.
func jsonValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// jsonScan unmarshals a json column value into dst.
func jsonScan(value any, dst any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// StringSlice stores a list of strings as a json column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return jsonValue([]string(s))
}

func (s *StringSlice) Scan(value any) error {
	*s = nil
	return jsonScan(value, s)
}

// MappingSet stores a media item's provider mappings as a json column.
type MappingSet []ProviderMapping

func (m MappingSet) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "[]", nil
	}
	return jsonValue([]ProviderMapping(m))
}

func (m *MappingSet) Scan(value any) error {
	*m = nil
	return jsonScan(value, m)
}

// ItemRefs stores item references (artists, albums) as a json column.
type ItemRefs []ItemRef

func (r ItemRefs) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	return jsonValue([]ItemRef(r))
}

func (r *ItemRefs) Scan(value any) error {
	*r = nil
	return jsonScan(value, r)
}

// MetadataJSON stores the metadata blob as a json column.
type MetadataJSON Metadata

func (m MetadataJSON) Value() (driver.Value, error) {
	return jsonValue(Metadata(m))
}

func (m *MetadataJSON) Scan(value any) error {
	*m = MetadataJSON{}
	return jsonScan(value, m)
}
