package gitea

import (
	"fmt"

	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/resilience"
)

func init() {
	codehost.Register(providerName, func(cfg map[string]string) (codehost.Host, error) {
		if cfg["base_url"] == "" {
			return nil, fmt.Errorf("gitea: base_url is required")
		}
		return NewClient(cfg["base_url"], cfg["token"], resilience.FromConfig(providerName, cfg)), nil
	})
}
