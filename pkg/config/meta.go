// Package config declares the field metadata a host UI needs to render and
// validate a component's options. The bridge validates the same bounds at
// initialization, independent of any UI.
package config

type FieldType string

const (
	FieldTypeNumber   FieldType = "number"
	FieldTypeText     FieldType = "text"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeSelect   FieldType = "select"
)

type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Field struct {
	Name         string        `json:"name"`
	Type         FieldType     `json:"type"`
	Label        string        `json:"label"`
	DefaultValue any           `json:"defaultValue"`
	HelpText     string        `json:"helpText,omitempty"`
	Options      []FieldOption `json:"options,omitempty"`
	Min          float32       `json:"min,omitempty"`
	Max          float32       `json:"max,omitempty"`
}
