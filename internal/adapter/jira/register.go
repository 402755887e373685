package jira

import (
	"github.com/Strob0t/taskalign/internal/port/tracker"
	"github.com/Strob0t/taskalign/internal/resilience"
)

func init() {
	tracker.Register(providerName, func(cfg map[string]string) (tracker.Tracker, error) {
		return NewClient(cfg["base_url"], cfg["email"], cfg["api_token"], resilience.FromConfig(providerName, cfg)), nil
	})
}
