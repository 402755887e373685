package github

import "errors"

// CheckConfigured reports a missing token without calling GitHub.
func (c *Client) CheckConfigured() error {
	if c.token == "" {
		return errors.New("github: missing GITHUB_TOKEN")
	}
	return nil
}
