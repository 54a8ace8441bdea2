package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scaffold writes the starter compose template and gitignore entries
// for a freshly initialized project. The template's dev container
// bootstraps itself and touches the readiness marker when done.
func Scaffold(projectDir string, cfg *Config) error {
	if err := writeComposeTemplate(projectDir, cfg); err != nil {
		return fmt.Errorf("writing compose template: %w", err)
	}
	if err := updateGitignore(projectDir); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	envsDir := filepath.Join(projectDir, Dir, EnvsDir)
	if err := os.MkdirAll(envsDir, 0o755); err != nil {
		return fmt.Errorf("creating envs dir: %w", err)
	}
	return nil
}

func writeComposeTemplate(projectDir string, cfg *Config) error {
	var ports strings.Builder
	for _, p := range cfg.Ports {
		fmt.Fprintf(&ports, "      - \"${COVE_PORT_%s}:%d\"\n", strings.ToUpper(p.Name), p.Base)
	}
	portsBlock := ""
	if ports.Len() > 0 {
		portsBlock = "    ports:\n" + ports.String()
	}

	bootstrap := "apt-get update && apt-get install -y --no-install-recommends tmux git curl ca-certificates && " +
		"mkdir -p /workspace/.cove && touch " + cfg.Ready.Marker + " && sleep infinity"

	content := fmt.Sprintf(`name: cove-${COVE_ENV}

networks:
  default:
    name: ${COVE_NETWORK}

services:
  %s:
    image: ubuntu:24.04
    command: ["sh", "-c", "%s"]
    working_dir: /workspace
    volumes:
      - ${COVE_WORKSPACE}:/workspace
%s`, cfg.Compose.Service, bootstrap, portsBlock)

	path := filepath.Join(projectDir, Dir, TemplateFile)
	return os.WriteFile(path, []byte(content), 0o644)
}

func updateGitignore(projectDir string) error {
	gitignorePath := filepath.Join(projectDir, ".gitignore")

	entries := []string{
		Dir + "/" + EnvsDir + "/",
	}

	existing, _ := os.ReadFile(gitignorePath)
	content := string(existing)

	var toAdd []string
	for _, entry := range entries {
		if !strings.Contains(content, entry) {
			toAdd = append(toAdd, entry)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n# coves\n"
	for _, entry := range toAdd {
		content += entry + "\n"
	}
	return os.WriteFile(gitignorePath, []byte(content), 0o644)
}
