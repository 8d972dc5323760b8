package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/murmur/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ErrAlreadyInitialized is returned when the target config file exists and force is not set.
var ErrAlreadyInitialized = fmt.Errorf("%s already exists", config.DefaultPath)

// Initialize writes a commented murmur.yml with the built-in defaults into dir.
// If force is true an existing file is overwritten.
// Returns the path of the written file.
func Initialize(dir string, force bool) (string, error) {
	path := filepath.Join(dir, config.DefaultPath)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", ErrAlreadyInitialized
		}
	}

	content, err := templatesFS.ReadFile("templates/murmur.yml.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to read murmur.yml template: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The template must always load cleanly
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", path, err)
	}

	return path, nil
}
