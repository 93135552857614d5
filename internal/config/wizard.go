package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to grievd! Let's configure your deployment.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider for complaint classification",
		Items: []string{
			"openai — hosted, needs OPENAI_API_KEY",
			"ollama — local models, needs a running Ollama server",
			"none   — no LLM; every complaint goes to manual review",
		},
	}
	providerIdx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = []ProviderType{ProviderOpenAI, ProviderOllama, ProviderNone}[providerIdx]

	if cfg.Provider != ProviderNone {
		modelPrompt := promptui.Prompt{
			Label:   "Model name",
			Default: defaultModel(cfg.Provider),
		}
		if cfg.Model, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
	} else {
		cfg.Model = ""
	}

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: cfg.DatabasePath,
	}
	if cfg.DatabasePath, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	defaultDeptPrompt := promptui.Prompt{
		Label:   "Default department (receives unmatched complaints)",
		Default: cfg.DefaultDepartment,
	}
	if cfg.DefaultDepartment, err = defaultDeptPrompt.Run(); err != nil {
		return nil, fmt.Errorf("default department: %w", err)
	}

	overflowPrompt := promptui.Prompt{
		Label:   "Overflow department (receives escalations)",
		Default: cfg.OverflowDepartment,
	}
	if cfg.OverflowDepartment, err = overflowPrompt.Run(); err != nil {
		return nil, fmt.Errorf("overflow department: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("Remember to set %s before starting the server.\n", envVar)
	}
	return cfg, nil
}

func defaultModel(provider ProviderType) string {
	if provider == ProviderOllama {
		return "llama3"
	}
	return "gpt-4o-mini"
}
