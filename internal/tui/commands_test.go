package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs []string
		wantNil  bool
	}{
		{"/new foo", "new", []string{"foo"}, false},
		{"/new foo fix the login", "new", []string{"foo", "fix", "the", "login"}, false},
		{"/rm foo", "rm", []string{"foo"}, false},
		{"/rm foo --force", "rm", []string{"foo", "--force"}, false},
		{"/connect foo", "connect", []string{"foo"}, false},
		{"/run foo", "run", []string{"foo"}, false},
		{"/quit", "quit", nil, false},
		{"not a command", "", nil, true},
		{"", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd := ParseCommand(tt.input)
			if tt.wantNil {
				if cmd != nil {
					t.Errorf("expected nil, got %+v", cmd)
				}
				return
			}
			if cmd == nil {
				t.Fatal("expected command, got nil")
			}
			if cmd.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", cmd.Name, tt.wantName)
			}
			if len(cmd.Args) == 0 && len(tt.wantArgs) == 0 {
				return
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Errorf("Args = %v, want %v", cmd.Args, tt.wantArgs)
			}
		})
	}
}

func TestPhaseSinkKeepsLatestPhase(t *testing.T) {
	sink := &phaseSink{}

	sink.Write([]byte(`COVE_STATUS {"namespace":"cove","code":"create.base","state":"running","message":"resolving base ref"}` + "\n"))
	sink.Write([]byte("plain non-marker output\n"))
	if got := sink.Phase(); got != "resolving base ref" {
		t.Errorf("Phase = %q, want first marker message", got)
	}

	sink.Write([]byte(`COVE_STATUS {"namespace":"cove","code":"create.start","state":"running","message":"starting containers"}` + "\n"))
	if got := sink.Phase(); got != "starting containers" {
		t.Errorf("Phase = %q, want latest marker message", got)
	}
}
