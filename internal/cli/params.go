package cli

import (
	"fmt"
	"strings"

	"github.com/apifetch/pkg/fetch"
)

// parseParams converts repeated name=value flags into ordered params.
func parseParams(raw []string) (fetch.Params, error) {
	params := make(fetch.Params, 0, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid param %q: expected name=value", kv)
		}
		params = append(params, fetch.Param{Name: name, Value: value})
	}
	return params, nil
}
