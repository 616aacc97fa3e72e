package hypr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i4arch/i4settings/internal/runner/runnertest"
)

func TestParseKeybinds(t *testing.T) {
	conf := strings.Join([]string{
		"$mainMod = SUPER",
		"# apps",
		"bind = $mainMod, Q, exec, kitty",
		"  binde=, XF86AudioRaiseVolume, exec, wpctl set-volume @DEFAULT_AUDIO_SINK@ 5%+  ",
		"bindm = SUPER, mouse:272, movewindow",
		"bind = SUPER, F, fullscreen,",
		"bind = SUPER, S, exec, notify-send a,b",
		"bind = SUPER, broken",
		"bindings = nope, x, y",
		"",
	}, "\n")

	binds, err := ParseKeybinds(strings.NewReader(conf))
	require.NoError(t, err)
	assert.Equal(t, []Keybind{
		{ID: "bind-0", BindType: "bind", Modifiers: "$mainMod", Key: "Q", Dispatcher: "exec", Args: "kitty"},
		{ID: "bind-1", BindType: "binde", Modifiers: "", Key: "XF86AudioRaiseVolume", Dispatcher: "exec", Args: "wpctl set-volume @DEFAULT_AUDIO_SINK@ 5%+"},
		{ID: "bind-2", BindType: "bindm", Modifiers: "SUPER", Key: "mouse:272", Dispatcher: "movewindow"},
		{ID: "bind-3", BindType: "bind", Modifiers: "SUPER", Key: "F", Dispatcher: "fullscreen"},
		{ID: "bind-4", BindType: "bind", Modifiers: "SUPER", Key: "S", Dispatcher: "exec", Args: "notify-send a,b"},
	}, binds)
}

func TestIsBindType(t *testing.T) {
	tests := map[string]bool{
		"bind":     true,
		"bindel":   true,
		"bindm":    true,
		"bindings": false,
		"exec":     false,
		"":         false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsBindType(in), in)
	}
}

func TestRenderKeybinds(t *testing.T) {
	out, err := RenderKeybinds([]Keybind{
		{BindType: "", Modifiers: "SUPER", Key: "Q", Dispatcher: "exec", Args: "kitty"},
		{BindType: "bindm", Modifiers: "SUPER", Key: "mouse:272", Dispatcher: "movewindow"},
		{BindType: "bind", Modifiers: "SUPER", Key: "", Dispatcher: "exec"},
		{BindType: "bind", Modifiers: "SUPER", Key: "E", Dispatcher: " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "bind = SUPER, Q, exec, kitty\nbindm = SUPER, mouse:272, movewindow,\n", out)

	_, err = RenderKeybinds([]Keybind{{BindType: "exec", Key: "Q", Dispatcher: "exec"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = RenderKeybinds([]Keybind{{BindType: "bind", Key: "Q", Dispatcher: "exec", Args: "a\nexec-once = evil"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = RenderKeybinds([]Keybind{{BindType: "bind", Key: "Q,W", Dispatcher: "exec"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestSaveKeybinds(t *testing.T) {
	m := testManager(t, runnertest.New())

	binds, err := m.Keybinds()
	require.NoError(t, err)
	assert.Empty(t, binds)

	writeFile(t, m.KeybindsPath(), "$mainMod = SUPER\n# window management\nbind = $mainMod, C, killactive,\nbind = $mainMod, V, togglefloating,\n")
	binds, err = m.Keybinds()
	require.NoError(t, err)
	require.Len(t, binds, 2)

	binds = append(binds[:1], Keybind{BindType: "binde", Modifiers: "$mainMod", Key: "L", Dispatcher: "resizeactive", Args: "10 0"})
	require.NoError(t, m.SaveKeybinds(binds))
	assert.Equal(t,
		"$mainMod = SUPER\n# window management\nbind = $mainMod, C, killactive,\nbinde = $mainMod, L, resizeactive, 10 0\n",
		readFile(t, m.KeybindsPath()))

	reread, err := m.Keybinds()
	require.NoError(t, err)
	assert.Equal(t, "resizeactive", reread[1].Dispatcher)
	assert.Equal(t, "10 0", reread[1].Args)
}

func TestSaveKeybinds_InvalidLeavesFile(t *testing.T) {
	m := testManager(t, runnertest.New())
	writeFile(t, m.KeybindsPath(), "bind = SUPER, Q, exec, kitty\n")

	err := m.SaveKeybinds([]Keybind{{BindType: "unbind", Key: "Q", Dispatcher: "exec"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Equal(t, "bind = SUPER, Q, exec, kitty\n", readFile(t, m.KeybindsPath()))
}
