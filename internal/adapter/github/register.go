package github

import (
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/resilience"
)

func init() {
	codehost.Register(providerName, func(cfg map[string]string) (codehost.Host, error) {
		return NewClient(cfg["base_url"], cfg["token"], resilience.FromConfig(providerName, cfg)), nil
	})
}
