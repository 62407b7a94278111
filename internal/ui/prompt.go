package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
)

// Confirmer asks the user to approve an action
type Confirmer interface {
	Confirm(label string) (bool, error)
}

// PromptConfirmer asks on the terminal with a y/N prompt
type PromptConfirmer struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// Confirm returns false without error when the user declines
func (p PromptConfirmer) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.Stdin,
		Stdout:    p.Stdout,
	}
	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return true, nil
}

// AutoConfirmer approves everything, for --yes
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(string) (bool, error) {
	return true, nil
}

// MockConfirmer for testing
type MockConfirmer struct {
	Confirmed bool
	Err       error

	// Call tracking
	Labels []string
}

func (m *MockConfirmer) Confirm(label string) (bool, error) {
	m.Labels = append(m.Labels, label)
	return m.Confirmed, m.Err
}
