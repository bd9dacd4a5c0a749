package errors_test

import (
	"fmt"

	"github.com/agentstation/demorefresh/pkg/errors"
)

// Example demonstrates classifying the two fatal run conditions.
func Example() {
	for _, err := range []error{
		errors.NewConfigError("sources", "no sources configured", nil),
		errors.NewAllDataMissingError(1, []string{"engram-hq/.skills/org-knowledge/SKILL.md"}),
	} {
		switch {
		case errors.IsConfigError(err):
			fmt.Println("fix the sources file")
		case errors.IsAllDataMissing(err):
			fmt.Println("nothing fetched, cache left untouched")
		}
	}

	// Output:
	// fix the sources file
	// nothing fetched, cache left untouched
}
