package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// consoleUI prints toasts and dialogs to a terminal. Dialog buttons are
// answered with a preset choice; toast actions run when clickToast is set.
type consoleUI struct {
	mu         sync.Mutex
	out        io.Writer
	choice     int
	clickToast bool
}

func newConsoleUI(out io.Writer, choice int, clickToast bool) *consoleUI {
	return &consoleUI{out: out, choice: choice, clickToast: clickToast}
}

func (u *consoleUI) ShowToast(ctx context.Context, toast deskerr.Toast) error {
	u.mu.Lock()
	fmt.Fprintf(u.out, "[toast:%s] %s", toast.Type, toast.Message)
	if toast.ActionText != "" {
		fmt.Fprintf(u.out, " [%s]", toast.ActionText)
	}
	fmt.Fprintln(u.out)
	u.mu.Unlock()

	if u.clickToast && toast.Action != nil {
		toast.Action()
	}
	return nil
}

func (u *consoleUI) ShowMessageDialog(ctx context.Context, dialog deskerr.Dialog) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	fmt.Fprintf(u.out, "[dialog] %s\n", dialog.Message)
	if dialog.Detail != "" {
		fmt.Fprintf(u.out, "  %s\n", dialog.Detail)
	}
	for i, b := range dialog.Buttons {
		marker := " "
		if b.IsPrimary {
			marker = "*"
		}
		fmt.Fprintf(u.out, "  %s%d) %s\n", marker, i, b.Label)
	}

	if u.choice < 0 || u.choice >= len(dialog.Buttons) {
		return -1, nil
	}
	fmt.Fprintf(u.out, "  -> %s\n", dialog.Buttons[u.choice].Label)
	return u.choice, nil
}

// consoleSender prints open-external requests instead of opening a browser.
type consoleSender struct {
	out io.Writer
}

func (s consoleSender) Send(ctx context.Context, name string, payload any) error {
	_, err := fmt.Fprintf(s.out, "[%s] %v\n", name, payload)
	return err
}
