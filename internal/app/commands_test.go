package app

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestCommands_Tick(t *testing.T) {
	cmds := NewCommands(nil)
	if cmds.Tick(time.Millisecond) == nil {
		t.Error("Tick returned nil")
	}
	if cmds.DefaultTick() == nil {
		t.Error("DefaultTick returned nil")
	}
}

func TestCommands_Notifications(t *testing.T) {
	cmds := NewCommands(nil)

	tests := []struct {
		fn   func(string) tea.Cmd
		name string
		want NotificationType
	}{
		{cmds.NotifySuccess, "Success", NotificationSuccess},
		{cmds.NotifyError, "Error", NotificationError},
		{cmds.NotifyWarning, "Warning", NotificationWarning},
		{cmds.NotifyInfo, "Info", NotificationInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.fn("msg")()

			addMsg, ok := msg.(AddNotificationMsg)
			if !ok {
				t.Fatalf("Expected AddNotificationMsg, got %T", msg)
			}
			if addMsg.Type != tt.want {
				t.Errorf("Type = %v, want %v", addMsg.Type, tt.want)
			}
			if addMsg.Message != "msg" {
				t.Errorf("Message = %q, want msg", addMsg.Message)
			}
			if addMsg.Duration <= 0 {
				t.Errorf("Duration = %v, want positive", addMsg.Duration)
			}
		})
	}
}

func TestCommands_ClearNotification(t *testing.T) {
	if NewCommands(nil).ClearNotification("id", time.Millisecond) == nil {
		t.Error("ClearNotification returned nil")
	}
}

func TestCommands_WithoutManager(t *testing.T) {
	cmds := NewCommands(nil)
	if cmds.Refresh() != nil {
		t.Error("Refresh without manager should be nil")
	}
	if cmds.GenerateAdvice(0) != nil {
		t.Error("GenerateAdvice without manager should be nil")
	}
	if cmds.LoadSnapshots() != nil {
		t.Error("LoadSnapshots without manager should be nil")
	}
}
