package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultState(t *testing.T) {
	state := DefaultState()
	require.JSONEq(t, "[]", string(state.GetCommands()))
	require.JSONEq(t, "{}", string(state.GetWindows()))
}

func TestSaveAndLoadCommands(t *testing.T) {
	withTempHome(t)

	state := LoadState()
	require.JSONEq(t, "[]", string(state.GetCommands()))

	commands := []string{"make test", "", "npm run dev"}
	data, err := json.Marshal(commands)
	require.NoError(t, err)
	require.NoError(t, state.SaveCommands(data))

	reloaded := LoadState()
	var got []string
	require.NoError(t, json.Unmarshal(reloaded.GetCommands(), &got))
	require.Equal(t, commands, got)
}

func TestDeleteAllCommands(t *testing.T) {
	withTempHome(t)

	state := LoadState()
	require.NoError(t, state.SaveCommands(json.RawMessage(`["ls"]`)))
	require.NoError(t, state.DeleteAllCommands())

	reloaded := LoadState()
	require.JSONEq(t, "[]", string(reloaded.GetCommands()))
}

func TestSaveAndLoadWindows(t *testing.T) {
	withTempHome(t)

	state := LoadState()
	require.JSONEq(t, "{}", string(state.GetWindows()))

	require.NoError(t, state.SaveWindows(json.RawMessage(`{"1": "%3", "4": "%9"}`)))

	reloaded := LoadState()
	var got map[int]string
	require.NoError(t, json.Unmarshal(reloaded.GetWindows(), &got))
	require.Equal(t, map[int]string{1: "%3", 4: "%9"}, got)

	require.NoError(t, reloaded.DeleteAllWindows())
	require.JSONEq(t, "{}", string(LoadState().GetWindows()))
}

func TestRefreshFromDisk(t *testing.T) {
	withTempHome(t)

	state := LoadState()

	// Nothing changed yet
	refreshed, err := state.RefreshFromDisk()
	require.NoError(t, err)
	require.False(t, refreshed)

	// Another process writes new commands
	time.Sleep(10 * time.Millisecond)
	other := LoadState()
	require.NoError(t, other.SaveCommands(json.RawMessage(`["vim"]`)))

	refreshed, err = state.RefreshFromDisk()
	require.NoError(t, err)
	require.True(t, refreshed)
	require.JSONEq(t, `["vim"]`, string(state.GetCommands()))
}

func TestFileLockRoundTrip(t *testing.T) {
	withTempHome(t)

	lock, err := GetStateLock()
	require.NoError(t, err)

	require.NoError(t, lock.Lock())
	require.Error(t, lock.Lock()) // already held
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock()) // releasing twice is fine

	require.NoError(t, lock.RLock())
	require.NoError(t, lock.Unlock())
}
