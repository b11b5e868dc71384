// Package factory builds entities from JSON definitions and class files and writes
// them back.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/plus3/rtx/ecs"
)

// Definition is the on-disk shape of an entity:
//
//	{"name": "Lamp", "class": "game/classes/lamp.json",
//	 "components": [{"type": "TransformComponent", ...}], "children": [...]}
//
// When Class is set the class definition is instantiated first; Name overrides
// the class name and Components and Children are appended to the class's.
type Definition struct {
	Name       string            `json:"name,omitempty"`
	Class      string            `json:"class,omitempty"`
	Components []json.RawMessage `json:"components,omitempty"`
	Children   []Definition      `json:"children,omitempty"`
}

// ParseDefinition decodes a definition document. A malformed document fails as a whole.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ecs.ErrMalformedDefinition, err)
	}
	return &def, nil
}

// componentType extracts the "type" field of one component entry.
func componentType(entry json.RawMessage) (string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(entry, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ecs.ErrMalformedDefinition, err)
	}
	if head.Type == nil || *head.Type == "" {
		return "", fmt.Errorf("%w: component entry without a type", ecs.ErrMalformedDefinition)
	}
	return *head.Type, nil
}
