package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/memgate/membridge/pkg/config"
)

// Memory scopes understood by the service.
const (
	ScopeFacts       = "facts"
	ScopePrefs       = "prefs"
	ScopePersona     = "persona"
	ScopeConstraints = "constraints"
)

// Scopes lists the valid scope values in UI order.
var Scopes = []string{ScopeFacts, ScopePrefs, ScopePersona, ScopeConstraints}

const (
	defaultMaxItems = 20
	minItems        = 1
	maxItems        = 200
)

// Params are the bound per-run options. They are set once at
// initialization and immutable thereafter.
type Params struct {
	Scope          string
	Tags           []string
	MaxItems       int
	IncludeDeleted bool
}

// bindParams normalizes the user-facing option map into Params. Pure
// function, no I/O. Unknown keys are ignored; invalid values fail with a
// *ConfigError rather than being silently clamped.
func bindParams(options map[string]string) (Params, error) {
	p := Params{
		Scope:    ScopeFacts,
		MaxItems: defaultMaxItems,
	}
	if options == nil {
		return p, nil
	}

	if scope := options["scope"]; scope != "" {
		if !validScope(scope) {
			return Params{}, &ConfigError{Reason: fmt.Sprintf("unknown scope %q, valid scopes: %s", scope, strings.Join(Scopes, ", "))}
		}
		p.Scope = scope
	}

	p.Tags = SplitTags(options["tags"])

	if raw := options["maxItems"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, &ConfigError{Reason: fmt.Sprintf("maxItems %q is not a number", raw)}
		}
		if n < minItems || n > maxItems {
			return Params{}, &ConfigError{Reason: fmt.Sprintf("maxItems must be between %d and %d, got %d", minItems, maxItems, n)}
		}
		p.MaxItems = n
	}

	p.IncludeDeleted = options["includeDeleted"] == "true"

	return p, nil
}

// SplitTags turns a free-form comma-separated tag string into a trimmed
// token list, preserving order and dropping empty tokens.
func SplitTags(raw string) []string {
	tags := []string{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		tags = append(tags, token)
	}
	return tags
}

func validScope(scope string) bool {
	for _, s := range Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ConfigForm returns the option schema of the bridge so a host UI can
// render and pre-validate its configuration.
func (b *Bridge) ConfigForm() []config.Field {
	scopeOptions := make([]config.FieldOption, len(Scopes))
	for i, s := range Scopes {
		scopeOptions[i] = config.FieldOption{Value: s, Label: s}
	}
	return []config.Field{
		{
			Name:         "scope",
			Type:         config.FieldTypeSelect,
			Label:        "Memory scope",
			DefaultValue: ScopeFacts,
			HelpText:     "Category attached to every stored memory",
			Options:      scopeOptions,
		},
		{
			Name:         "tags",
			Type:         config.FieldTypeText,
			Label:        "Tags",
			DefaultValue: "",
			HelpText:     "Comma-separated tags attached to written memories",
		},
		{
			Name:         "maxItems",
			Type:         config.FieldTypeNumber,
			Label:        "Max items to load",
			DefaultValue: defaultMaxItems,
			Min:          minItems,
			Max:          maxItems,
		},
		{
			Name:         "includeDeleted",
			Type:         config.FieldTypeCheckbox,
			Label:        "Include deleted",
			DefaultValue: false,
			HelpText:     "Ask the service to include soft-deleted items in listings",
		},
	}
}
