package jira

import (
	"errors"
	"strings"
)

// CheckConfigured reports missing connection settings without calling Jira.
func (c *Client) CheckConfigured() error {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "JIRA_BASE_URL")
	}
	if c.email == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if c.apiToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if len(missing) > 0 {
		return errors.New("jira: missing " + strings.Join(missing, ", "))
	}
	return nil
}
