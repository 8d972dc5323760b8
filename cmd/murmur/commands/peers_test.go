package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/murmur/pkg/presence"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRegistry(t *testing.T, mr *miniredis.Miniredis, namespace string, tokens ...string) *presence.Client {
	t.Helper()

	client, err := presence.NewClient(&redis.Options{Addr: mr.Addr()}, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	for _, token := range tokens {
		require.NoError(t, client.Add(context.Background(), token))
	}
	return client
}

func TestPeers_Table(t *testing.T) {
	mr := miniredis.RunT(t)
	seedRegistry(t, mr, "", "peer-a", "peer-b")

	out, _, err := executeCommand(t, "peers", "--redis-url", "redis://"+mr.Addr())

	require.NoError(t, err)
	assert.Contains(t, out, "TOKEN")
	assert.Contains(t, out, "peer-a CHANNEL")
	assert.Contains(t, out, "peer-b CHANNEL")
}

func TestPeers_EmptyRegistry(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := executeCommand(t, "peers", "--redis-url", "redis://"+mr.Addr())

	require.NoError(t, err)
	assert.Contains(t, out, "No peers registered")
}

func TestPeers_JSONWithNamespace(t *testing.T) {
	mr := miniredis.RunT(t)
	seedRegistry(t, mr, "prod", "peer-a")
	seedRegistry(t, mr, "", "other-mesh")

	out, _, err := executeCommand(t, "peers", "--redis-url", "redis://"+mr.Addr(), "--namespace", "prod", "-o", "json")
	require.NoError(t, err)

	var infos []PeerInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Equal(t, []PeerInfo{{Token: "peer-a", Channel: "murmur:prod:peer-a CHANNEL"}}, infos)
}

func TestPeers_JSONEmptyIsArray(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := executeCommand(t, "peers", "--redis-url", "redis://"+mr.Addr(), "-o", "json")

	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestPeers_InvalidOutputFormat(t *testing.T) {
	_, errOut, err := executeCommand(t, "peers", "-o", "yaml")

	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())
	assert.Contains(t, errOut, "Valid formats: table, json")
}

func TestPeers_CorruptRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("connected_ids", "not json"))

	_, _, err := executeCommand(t, "peers", "--redis-url", "redis://"+mr.Addr())

	require.Error(t, err)
	assert.Equal(t, "registry is corrupt", err.Error())
}

func TestPrune(t *testing.T) {
	mr := miniredis.RunT(t)
	client := seedRegistry(t, mr, "", "stale", "live")

	out, errOut, err := executeCommand(t, "peers", "prune", "stale", "ghost", "--redis-url", "redis://"+mr.Addr())
	require.NoError(t, err)

	assert.Contains(t, out, "Removed 1 token(s) from connected_ids")
	assert.Contains(t, errOut, "ghost is not registered")

	members, err := client.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, members)
}

func TestPrune_NothingRegistered(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := executeCommand(t, "peers", "prune", "ghost", "--redis-url", "redis://"+mr.Addr())

	require.NoError(t, err)
	assert.Contains(t, out, "No matching tokens were registered")
}

func TestPrune_RequiresToken(t *testing.T) {
	_, _, err := executeCommand(t, "peers", "prune")
	require.Error(t, err)
}
