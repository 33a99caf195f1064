package database

import (
	"encoding/json"
)

// Columns holding opaque key-value bags (metadata, details, step results)
// and list-valued fields (tags, references) are stored as JSON text.

func marshalJSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func unmarshalMap(data string) map[string]any {
	m := map[string]any{}
	if data == "" {
		return m
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalTags(data string) []string {
	var tags []string
	if data == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return []string{}
	}
	return tags
}

func marshalReferences(refs []Reference) string {
	if refs == nil {
		refs = []Reference{}
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalReferences(data string) []Reference {
	var refs []Reference
	if data == "" {
		return []Reference{}
	}
	if err := json.Unmarshal([]byte(data), &refs); err != nil {
		return []Reference{}
	}
	return refs
}
