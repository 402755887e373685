package gitlab

import "errors"

// CheckConfigured reports a missing token without calling GitLab.
func (c *Client) CheckConfigured() error {
	if c.token == "" {
		return errors.New("gitlab: missing GITLAB_TOKEN")
	}
	return nil
}
