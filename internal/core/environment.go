package core

import "strings"

// Environment selects logging format and verbosity at startup (ENVIRONMENT).
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

var knownEnvironments = map[Environment]struct{}{
	Development: {},
	Staging:     {},
	Testing:     {},
	Production:  {},
}

func (e Environment) String() string {
	return string(e)
}

// IsProduction switches the bot to JSON logs at info level.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment accepts any casing and surrounding blanks. Anything not
// recognised runs as Development.
func ParseEnvironment(v string) Environment {
	env := Environment(strings.ToLower(strings.TrimSpace(v)))
	if _, ok := knownEnvironments[env]; !ok {
		return Development
	}
	return env
}
