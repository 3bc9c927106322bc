package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const rosterYAML = `evaluators:
  - id: value
    name: Value Investor
    risk_profile: conservative
    style: contrarian
    model: gpt-4o-mini
    weight: 1.5
  - id: growth
    name: Growth Hunter
    risk_profile: aggressive
    model: gpt-4o-mini
`

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evaluators.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRoster(t *testing.T) {
	l, err := NewRosterLoader(writeRoster(t, rosterYAML))
	assert.NoError(t, err)
	defer l.Close()

	evaluators := l.Evaluators()
	if assert.Len(t, evaluators, 2) {
		assert.Equal(t, "value", evaluators[0].ID)
		assert.Equal(t, 1.5, evaluators[0].Weight)
		assert.Equal(t, 1.0, evaluators[1].VoteWeight())
	}
	assert.Equal(t, int64(1), l.Snapshot().Version)
}

func TestReloadBumpsVersion(t *testing.T) {
	path := writeRoster(t, rosterYAML)
	l, err := NewRosterLoader(path)
	assert.NoError(t, err)
	defer l.Close()

	updated := rosterYAML + `  - id: quant
    name: Quant Desk
    weight: 2
`
	assert.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	assert.NoError(t, l.reload())

	assert.Len(t, l.Evaluators(), 3)
	assert.Equal(t, int64(2), l.Snapshot().Version)
}

func TestBadReloadKeepsPreviousRoster(t *testing.T) {
	path := writeRoster(t, rosterYAML)
	l, err := NewRosterLoader(path)
	assert.NoError(t, err)
	defer l.Close()

	assert.NoError(t, os.WriteFile(path, []byte("evaluators: []\n"), 0o644))
	assert.Error(t, l.reload())
	assert.Len(t, l.Evaluators(), 2)
	assert.Equal(t, int64(1), l.Snapshot().Version)
}

func TestValidateRoster(t *testing.T) {
	_, err := NewRosterLoader(writeRoster(t, `evaluators:
  - id: a
  - id: a
`))
	assert.ErrorContains(t, err, "duplicate evaluator id")

	_, err = NewRosterLoader(writeRoster(t, `evaluators:
  - name: anonymous
`))
	assert.ErrorContains(t, err, "has no id")
}
