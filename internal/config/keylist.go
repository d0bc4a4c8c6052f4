package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyList is a list of key names. In every file format it may be written
// either as a list or as one comma separated string.
type KeyList []string

func splitKeyList(s string) KeyList {
	var out KeyList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (k *KeyList) fromAny(v any) error {
	switch v := v.(type) {
	case string:
		*k = splitKeyList(v)
	case []any:
		out := make(KeyList, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("key list entry %v is not a string", item)
			}
			out = append(out, s)
		}
		*k = out
	default:
		return fmt.Errorf("key list must be a string or a list, got %T", v)
	}
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (k *KeyList) UnmarshalTOML(v any) error {
	return k.fromAny(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *KeyList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return k.fromAny(v)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *KeyList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*k = splitKeyList(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*k = items
		return nil
	default:
		return fmt.Errorf("line %d: key list must be a string or a list", node.Line)
	}
}

// String returns the comma separated form.
func (k KeyList) String() string {
	return strings.Join(k, ",")
}
