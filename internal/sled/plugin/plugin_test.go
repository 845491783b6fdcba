package plugin

import "testing"

func TestDebugModeString(t *testing.T) {
	cases := []struct {
		mode DebugMode
		want string
	}{
		{ModeNormal, "normal"},
		{ModeStepInto, "step_into"},
		{ModeStepOver, "step_over"},
		{ModeStepOut, "step_out"},
		{ModeStop, "stop"},
		{DebugMode(99), "unknown"},
	}

	for _, c := range cases {
		if got := c.mode.String(); got != c.want {
			t.Errorf("DebugMode(%d).String() = %q, want %q", c.mode, got, c.want)
		}
	}
}
