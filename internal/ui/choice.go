package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// ChoiceValue is a string flag restricted to a fixed set of values
type ChoiceValue struct {
	target       *string
	defaultValue string
	choices      []string
}

var _ pflag.Value = (*ChoiceValue)(nil)

// AddChoiceFlag registers a flag that only accepts one of choices, or the default value
func AddChoiceFlag(flagSet *pflag.FlagSet, target *string, name string, defaultValue string, choices []string, usage string) {
	*target = defaultValue
	value := &ChoiceValue{target: target, defaultValue: defaultValue, choices: choices}
	flagSet.Var(value, name, fmt.Sprintf("%s (%s)", usage, strings.Join(choices, "|")))
}

func (c *ChoiceValue) Set(raw string) error {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized != c.defaultValue && !slices.Contains(c.choices, normalized) {
		return fmt.Errorf("invalid value %q, must be one of %s", raw, strings.Join(c.choices, ", "))
	}
	*c.target = normalized
	return nil
}

func (c *ChoiceValue) String() string {
	if c == nil || c.target == nil {
		return ""
	}
	return *c.target
}

func (c *ChoiceValue) Type() string {
	return "string"
}
