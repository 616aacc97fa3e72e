package vpn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/internal/runner/runnertest"
)

const listCmd = "nmcli -t -f UUID,NAME,TYPE,ACTIVE connection show"

func TestList(t *testing.T) {
	fake := runnertest.New().On(listCmd, runnertest.Response{
		Stdout: "uuid0:Home Wi-Fi:802-11-wireless:yes\n" +
			"uuid2:Home:wireguard:--\n" +
			"uuid1:Work:vpn:yes\n" +
			"uuid3:Lab\\:East:vpn:no\n" +
			"uuid4:Tunnel:wireguard:wg0\n" +
			"broken:row\n",
	})

	conns, err := New(fake, nil).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Connection{
		{UUID: "uuid1", Name: "Work", Type: "vpn", Active: true},
		{UUID: "uuid4", Name: "Tunnel", Type: "wireguard", Active: true},
		{UUID: "uuid2", Name: "Home", Type: "wireguard"},
		{UUID: "uuid3", Name: "Lab:East", Type: "vpn"},
	}, conns)
}

func TestList_ToolMissing(t *testing.T) {
	_, err := New(runnertest.New(), nil).List(context.Background())
	assert.True(t, runner.IsInvocation(err))
}

func TestIsActive(t *testing.T) {
	for field, want := range map[string]bool{
		"yes": true,
		"wg0": true,
		"no":  false,
		"--":  false,
		"":    false,
	} {
		assert.Equal(t, want, IsActive(field), field)
	}
}

func TestActivateDeactivate(t *testing.T) {
	fake := runnertest.New().
		On("nmcli connection up uuid1", runnertest.Response{}).
		On("nmcli connection down uuid1", runnertest.Response{ExitCode: 10, Stderr: "Error: 'uuid1' is not an active connection.\n"})
	m := New(fake, nil)

	require.NoError(t, m.Activate(context.Background(), "uuid1"))
	err := m.Deactivate(context.Background(), "uuid1")
	assert.EqualError(t, err, "Error: 'uuid1' is not an active connection.")
}

func TestResolveType(t *testing.T) {
	tests := []struct {
		path     string
		explicit string
		want     string
		wantErr  bool
	}{
		{path: "vpn1.ovpn", want: "openvpn"},
		{path: "tunnel.conf", want: "wireguard"},
		{path: "wg0.wg", want: "wireguard"},
		{path: "profile.xyz", wantErr: true},
		{path: "profile.xyz", explicit: "openvpn", want: "openvpn"},
		{path: "tunnel.conf", explicit: "openvpn", want: "openvpn"},
	}
	for _, tt := range tests {
		got, err := ResolveType(tt.path, tt.explicit)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrAmbiguousProfileType, tt.path)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestExtractUUID(t *testing.T) {
	uuid, ok := ExtractUUID("Connection 'vpn1 (old)' (3c6f9e1a-1b2c-4d5e-8f90-0a1b2c3d4e5f) successfully added.")
	assert.True(t, ok)
	assert.Equal(t, "3c6f9e1a-1b2c-4d5e-8f90-0a1b2c3d4e5f", uuid)

	_, ok = ExtractUUID("done")
	assert.False(t, ok)
	_, ok = ExtractUUID(") reversed (")
	assert.False(t, ok)
}

const importOutput = "Connection 'vpn1' (abcd-1234) successfully added.\n"

func TestImport_OpenVPNWithCredentials(t *testing.T) {
	fake := runnertest.New().
		On("nmcli connection import type openvpn file /tmp/vpn1.ovpn", runnertest.Response{Stdout: importOutput}).
		On("nmcli connection modify abcd-1234 +vpn.data username=alice", runnertest.Response{}).
		On("nmcli connection modify abcd-1234 +vpn.secrets password=s3cret", runnertest.Response{ExitCode: 1, Stderr: "Error: failed to modify"}).
		On("nmcli connection modify abcd-1234 vpn.secrets-flags 0", runnertest.Response{})

	res, err := New(fake, nil).Import(context.Background(), "/tmp/vpn1.ovpn", ImportOptions{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "abcd-1234", res.UUID)
	assert.Equal(t, "openvpn", res.Type)
	require.Len(t, res.Steps, 3)
	assert.True(t, res.Steps[0].OK())
	assert.Equal(t, "nmcli connection modify abcd-1234 +vpn.secrets ***", res.Steps[1].Name)
	assert.Equal(t, "Error: failed to modify", res.Steps[1].Error)
	assert.True(t, res.Steps[2].OK())
}

func TestImport_WireGuardIgnoresCredentials(t *testing.T) {
	fake := runnertest.New().
		On("nmcli connection import type wireguard file tunnel.conf", runnertest.Response{Stdout: importOutput})

	res, err := New(fake, nil).Import(context.Background(), "tunnel.conf", ImportOptions{Username: "alice", Password: "x"})
	require.NoError(t, err)
	assert.Empty(t, res.Steps)
	assert.Len(t, fake.Calls, 1)
}

func TestImport_Failures(t *testing.T) {
	fake := runnertest.New().
		On("nmcli connection import type openvpn file bad.ovpn", runnertest.Response{ExitCode: 2, Stderr: "Error: failed to import 'bad.ovpn'\n"})
	m := New(fake, nil)

	_, err := m.Import(context.Background(), "bad.ovpn", ImportOptions{})
	assert.EqualError(t, err, "Error: failed to import 'bad.ovpn'")

	_, err = m.Import(context.Background(), "profile.xyz", ImportOptions{})
	assert.ErrorIs(t, err, ErrAmbiguousProfileType)
	assert.Len(t, fake.Calls, 1)
}

func TestImport_NoUUID(t *testing.T) {
	fake := runnertest.New().
		On("nmcli connection import type openvpn file vpn1.ovpn", runnertest.Response{Stdout: "ok\n"})

	res, err := New(fake, nil).Import(context.Background(), "vpn1.ovpn", ImportOptions{Password: "x"})
	require.NoError(t, err)
	require.Len(t, res.Steps, 1)
	assert.False(t, res.Steps[0].OK())
}
