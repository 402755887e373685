package gitea

import (
	"errors"
	"strings"
)

// CheckConfigured reports missing connection settings without calling Gitea.
func (c *Client) CheckConfigured() error {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "codehost.base_url")
	}
	if c.token == "" {
		missing = append(missing, "GITEA_TOKEN")
	}
	if len(missing) > 0 {
		return errors.New("gitea: missing " + strings.Join(missing, ", "))
	}
	return nil
}
