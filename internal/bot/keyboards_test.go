package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMenuButton(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Мои бонусы", true},
		{"мои бонусы", true},
		{"💰 Прайс", true},
		{"Прайс", true},
		{"Режим работы", true},
		{"/start", true},
		{"Отмена", true},
		{"Сколько стоит уборка?", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isMenuButton(tt.text), "isMenuButton(%q)", tt.text)
	}
}

func TestMainMenu_RequireContact(t *testing.T) {
	menu := mainMenu(true)
	assert.Len(t, menu.Keyboard, 3)
	assert.True(t, menu.Keyboard[0][0].RequestContact, "restricted menu should lead with the contact request button")
}

func TestMainMenu_Full(t *testing.T) {
	menu := mainMenu(false)
	assert.Len(t, menu.Keyboard, 5)
	assert.True(t, menu.ResizeKeyboard)

	var labels []string
	for _, row := range menu.Keyboard {
		for _, button := range row {
			labels = append(labels, button.Text)
		}
	}
	assert.Contains(t, labels, btnBonus)
	assert.Contains(t, labels, btnOrder)
	assert.Contains(t, labels, btnQuestion)
	assert.Contains(t, labels, btnCancel)
}

func TestContactKeyboard(t *testing.T) {
	keyboard := contactKeyboard()
	assert.Len(t, keyboard.Keyboard, 2)
	assert.True(t, keyboard.Keyboard[0][0].RequestContact)
	assert.Equal(t, btnCancel, keyboard.Keyboard[1][0].Text)
}
