package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ReceiptSystemPrompt(t *testing.T) {
	prompt, err := Get("receipt.json", "system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "quantity")
	assert.Contains(t, prompt, "price")
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("receipt.json", "no_such_key")
	assert.Error(t, err)
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("no_such_file.json", "system")
	assert.Error(t, err)
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("receipt.json", "no_such_key")
	})
}
