package keyspec

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestFromKeyMsgNormalizesModifiers(t *testing.T) {
	msg := tea.KeyMsg{Type: tea.KeyCtrlC}
	assert.Equal(t, KeyCtrlC, FromKeyMsg(msg))
}

func TestBindingActiveDefaultsToTrue(t *testing.T) {
	b := Binding{Keys: []Key{"s"}, Description: "save"}
	assert.True(t, b.Active())
}

func TestBindingActiveRespectsCondition(t *testing.T) {
	b := Binding{Keys: []Key{"s"}, Description: "save", Condition: func() bool { return false }}
	assert.False(t, b.Active())
}

func TestBindingHelpLineJoinsKeysWithSpace(t *testing.T) {
	b := Binding{Keys: []Key{"ctrl+k", "j"}, Description: "next step"}
	assert.Equal(t, "ctrl+k j - next step", b.HelpLine())
}
