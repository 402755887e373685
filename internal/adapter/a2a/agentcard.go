package a2a

// SkillVerifyAlignment is the only skill the agent offers.
const SkillVerifyAlignment = "verify-alignment"

// BuildAgentCard returns the AgentCard for the taskalign service.
func BuildAgentCard(baseURL, version string) AgentCard {
	return AgentCard{
		Name:        "taskalign",
		Description: "Checks whether tracker task statuses match the code delivered to a repository",
		URL:         baseURL,
		Version:     version,
		Skills: []Skill{
			{
				ID:   SkillVerifyAlignment,
				Name: "Verify Alignment",
				Description: "Cross-reference tracker tasks with a repository's commits, pull requests, " +
					"branches and code. Input: repository (owner/name), optional project, status_filter, max_tasks.",
				InputModes:  []string{"application/json"},
				OutputModes: []string{"application/json"},
			},
		},
	}
}
