package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Match(t *testing.T) {
	m := OnCommand("wordle", WithAliases("猜单词"))

	tests := []struct {
		text     string
		starts   []string
		self     string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"/wordle", []string{"/"}, "", "wordle", "", true},
		{"  /wordle start 5 ", []string{"/"}, "", "wordle", "start 5", true},
		{"/猜单词 hard", []string{"/"}, "", "猜单词", "hard", true},
		{"wordle", []string{"/", ""}, "", "wordle", "", true},
		{"!wordle", []string{"/", "!"}, "", "wordle", "", true},
		{"wordle", []string{"/"}, "", "", "", false},
		{"/wordles", []string{"/"}, "", "", "", false},
		{"/word", []string{"/"}, "", "", "", false},
		{"", []string{""}, "", "", "", false},
		{"/wordle@botparams_bot", []string{"/"}, "botparams_bot", "wordle", "", true},
		{"/wordle@BotParams_Bot start", []string{"/"}, "botparams_bot", "wordle", "start", true},
		{"/wordle@other_bot", []string{"/"}, "botparams_bot", "", "", false},
		{"/wordle@botparams_bot", []string{"/"}, "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := m.match(tt.text, tt.starts, tt.self)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestOnCommand_Defaults(t *testing.T) {
	m := OnCommand("help")
	assert.Equal(t, "help", m.Command())
	assert.Equal(t, DefaultPriority, m.priority)
	assert.True(t, m.block)
	assert.Nil(t, m.handler)

	m = OnCommand("help", WithPriority(10), WithBlock(false))
	assert.Equal(t, 10, m.priority)
	assert.False(t, m.block)
}
