package main

// Provider blank imports. Each import activates a self-registering adapter.
// Add new providers here as they are implemented.

import (
	_ "github.com/Strob0t/taskalign/internal/adapter/discord"
	_ "github.com/Strob0t/taskalign/internal/adapter/gitea"
	_ "github.com/Strob0t/taskalign/internal/adapter/github"
	_ "github.com/Strob0t/taskalign/internal/adapter/gitlab"
	_ "github.com/Strob0t/taskalign/internal/adapter/jira"
	_ "github.com/Strob0t/taskalign/internal/adapter/slack"
)
