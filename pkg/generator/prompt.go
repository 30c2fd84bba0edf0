package generator

import (
	"fmt"
	"os"
	"strings"
)

// LoadPrompt reads the system prompt from a file. The sales persona prompt
// is maintained outside the binary so it can be tuned without a redeploy.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("prompt path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}

	return prompt, nil
}
