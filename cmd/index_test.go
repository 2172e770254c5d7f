package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunIndexRequiresFile(t *testing.T) {
	err := runIndex(nil)
	assert.ErrorContains(t, err, "-file is required")
}

func TestRunIndexRejectsUnknownCollection(t *testing.T) {
	err := runIndex([]string{"-file", "docs.jsonl", "-collection", "recipes"})
	assert.ErrorContains(t, err, `unknown collection "recipes"`)
}
