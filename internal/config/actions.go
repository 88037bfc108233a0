package config

import (
	"github.com/sethvargo/go-githubactions"
)

// FromActions reads the INPUT_* variables of a GitHub Actions step.
// Unset inputs are omitted.
func FromActions(action *githubactions.Action) map[string]string {
	values := make(map[string]string, len(InputNames))
	for _, name := range InputNames {
		if v := action.GetInput(name); v != "" {
			values[name] = v
		}
	}
	return values
}

// Resolve layers sources over the defaults, lowest precedence first, and
// validates the result.
func Resolve(sources ...Source) (Inputs, error) {
	in := Defaults()
	for _, src := range sources {
		if err := in.Merge(src.Name, src.Values); err != nil {
			return Inputs{}, err
		}
	}
	if err := in.Validate(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

// Source is one layer of configuration values.
type Source struct {
	Name   string
	Values map[string]string
}
