package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hapd/pkg/client"
)

type setCall struct {
	aid, iid uint64
	value    any
}

// mockClient implements client.ClientInterface with static data and
// records writes.
type mockClient struct {
	sets     []setCall
	removed  []string
	level    string
	failWith error
}

var _ client.ClientInterface = (*mockClient)(nil)

func bridgeAccessory() client.Accessory {
	return client.Accessory{AID: 1, Name: "Bridge", Services: []client.Service{{
		IID: 1, Type: "3E",
		Characteristics: []client.Characteristic{
			{IID: 2, Type: "14", Format: "bool", Perms: []string{"pw"}},
			{IID: 5, Type: "23", Format: "string", Perms: []string{"pr"}, Value: "Bridge"},
		},
	}}}
}

func lampAccessory() client.Accessory {
	return client.Accessory{AID: 2, Name: "Lamp", Services: []client.Service{{
		IID: 8, Type: "43", Primary: true,
		Characteristics: []client.Characteristic{
			{IID: 9, Type: "25", Format: "bool", Perms: []string{"pr", "pw", "ev"}, Value: true},
			{IID: 10, Type: "8", Format: "int", Perms: []string{"pr", "pw"}, Value: float64(40), Unit: "percentage"},
		},
	}}}
}

func (m *mockClient) GetVersion() (map[string]any, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return map[string]any{"version": "2.0.0", "commit": "def456", "build_date": "2026-02-02"}, nil
}

func (m *mockClient) GetStatus() (*client.Status, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return &client.Status{Name: "Bridge", Paired: true, Pairings: 1, Sessions: 2, Listeners: 3, Accessories: 2, Uptime: "5m0s"}, nil
}

func (m *mockClient) GetAccessories() ([]client.Accessory, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return []client.Accessory{bridgeAccessory(), lampAccessory()}, nil
}

func (m *mockClient) GetAccessory(aid uint64) (*client.Accessory, error) {
	for _, a := range []client.Accessory{bridgeAccessory(), lampAccessory()} {
		if a.AID == aid {
			return &a, nil
		}
	}
	return nil, errors.New("HTTP error 404: accessory not found")
}

func (m *mockClient) SetCharacteristic(aid, iid uint64, value any) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.sets = append(m.sets, setCall{aid, iid, value})
	return nil
}

func (m *mockClient) GetPairings() ([]client.Pairing, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return []client.Pairing{{ID: "0C6B4F62-6D2F-4E39-9B1B-6B3F1C0B7C11", PublicKey: "abcd", Admin: true}}, nil
}

func (m *mockClient) RemovePairing(id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockClient) GetLogLevel() (string, error) {
	if m.level == "" {
		return "info", nil
	}
	return m.level, nil
}

func (m *mockClient) SetLogLevel(level string) (string, error) {
	if m.failWith != nil {
		return "", m.failWith
	}
	m.level = level
	return level, nil
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, &mockClient{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    1.0.0")
	assert.Contains(t, out, "Daemon:")
	assert.Contains(t, out, "Version:    2.0.0")

	out, err = execute(t, &mockClient{failWith: errors.New("down")}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon: not reachable")
}

func TestStatusCommandParseable(t *testing.T) {
	out, err := execute(t, &mockClient{}, "status", "-p")
	require.NoError(t, err)
	assert.Equal(t, "name=\"Bridge\" paired=true pairings=1 sessions=2 listeners=3 subscriptions=0 accessories=2 uptime=\"5m0s\"\n", out)
}

func TestStatusCommandTable(t *testing.T) {
	out, err := execute(t, &mockClient{}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Bridge")
	assert.Contains(t, out, "Sessions")
}

func TestAccessoriesListParseable(t *testing.T) {
	out, err := execute(t, &mockClient{}, "accessories", "list", "-p")
	require.NoError(t, err)
	assert.Contains(t, out, `aid=1 iid=5 type="23" format="string" perms="pr" value="Bridge"`)
	assert.Contains(t, out, `aid=1 iid=2 type="14" format="bool" perms="pw" value=-`)
	assert.Contains(t, out, `aid=2 iid=10 type="8" format="int" perms="pr,pw" value=40`)
}

func TestAccessoriesListSingle(t *testing.T) {
	out, err := execute(t, &mockClient{}, "acc", "list", "2", "-p")
	require.NoError(t, err)
	assert.NotContains(t, out, "aid=1")
	assert.Contains(t, out, "aid=2 iid=9")

	_, err = execute(t, &mockClient{}, "accessories", "list", "x")
	assert.ErrorContains(t, err, "invalid accessory id")

	_, err = execute(t, &mockClient{}, "accessories", "list", "7")
	assert.ErrorContains(t, err, "404")
}

func TestAccessoriesListTable(t *testing.T) {
	out, err := execute(t, &mockClient{}, "accessories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Lightbulb")
	assert.Contains(t, out, "40 percentage")
	assert.Contains(t, out, "pr,pw,ev")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"ON", true},
		{"off", false},
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"21.5", 21.5},
		{"Kitchen", "Kitchen"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseValue(tc.in))
		})
	}
}

func TestCharSetCommand(t *testing.T) {
	m := &mockClient{}
	_, err := execute(t, m, "char", "set", "2", "9", "off")
	require.NoError(t, err)
	_, err = execute(t, m, "char", "set", "2", "10", "75")
	require.NoError(t, err)
	_, err = execute(t, m, "char", "set", "--string", "2", "11", "42")
	require.NoError(t, err)

	assert.Equal(t, []setCall{
		{2, 9, false},
		{2, 10, int64(75)},
		{2, 11, "42"},
	}, m.sets)
}

func TestCharSetCommandErrors(t *testing.T) {
	_, err := execute(t, &mockClient{}, "char", "set", "a", "9", "1")
	assert.ErrorContains(t, err, "invalid accessory id")

	_, err = execute(t, &mockClient{}, "char", "set", "2", "-1", "1")
	assert.Error(t, err)

	_, err = execute(t, &mockClient{}, "char", "set", "2", "9")
	assert.Error(t, err, "value is required")

	_, err = execute(t, &mockClient{failWith: errors.New("HTTP error 400: out of range")}, "char", "set", "2", "10", "500")
	assert.ErrorContains(t, err, "out of range")
}

func TestPairingsListParseable(t *testing.T) {
	out, err := execute(t, &mockClient{}, "pairings", "list", "-p")
	require.NoError(t, err)
	assert.Equal(t, "id=\"0C6B4F62-6D2F-4E39-9B1B-6B3F1C0B7C11\" admin=true public_key=\"abcd\"\n", out)
}

func TestPairingsRemove(t *testing.T) {
	m := &mockClient{}
	_, err := execute(t, m, "pairings", "rm", "-y", "0C6B4F62-6D2F-4E39-9B1B-6B3F1C0B7C11")
	require.NoError(t, err)
	assert.Equal(t, []string{"0C6B4F62-6D2F-4E39-9B1B-6B3F1C0B7C11"}, m.removed)

	_, err = execute(t, &mockClient{failWith: errors.New("HTTP error 404: pairing not found")}, "pairings", "remove", "-y", "x")
	assert.ErrorContains(t, err, "failed to remove pairing")
}

func TestLogLevelCommand(t *testing.T) {
	m := &mockClient{}
	out, err := execute(t, m, "log-level")
	require.NoError(t, err)
	assert.Equal(t, "info\n", out)

	_, err = execute(t, m, "log-level", "debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", m.level)
}

func TestCommandsWithoutClient(t *testing.T) {
	root := NewRootCommand(nil, "1.0.0", "", "")
	root.SetArgs([]string{"status"})
	err := root.Execute()
	assert.ErrorContains(t, err, "client not found")
}
