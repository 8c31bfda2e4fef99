package node

import (
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/gonka-ai/dashboard-backend/cmd"
)

func newTestContext(t *testing.T, tmp string) *cli.Context {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String(cmd.DataDirFlag.Name, tmp, "node data directory")
	set.String(cmd.UpstreamURLs.Name, "http://127.0.0.1:8000", "upstream chain API node")
	set.Bool(cmd.ForceClearDB.Name, false, "force clear db")
	set.Bool(cmd.DisableMonitoringFlag.Name, true, "disable monitoring")
	return cli.NewContext(&app, set, nil)
}

func logsContain(hook *logTest.Hook, want string) bool {
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, want) {
			return true
		}
	}
	return false
}

// Test that the dashboard node can close.
func TestNodeClose_OK(t *testing.T) {
	hook := logTest.NewGlobal()
	tmp := filepath.Join(t.TempDir(), "datadirtest")

	node, err := New(newTestContext(t, tmp))
	require.NoError(t, err)

	node.Close()

	assert.True(t, logsContain(hook, "Stopping dashboard node"))
}

func TestClearDB(t *testing.T) {
	hook := logTest.NewGlobal()
	tmp := filepath.Join(t.TempDir(), "datadirtest")

	cliCtx := newTestContext(t, tmp)
	require.NoError(t, cliCtx.Set(cmd.ForceClearDB.Name, "true"))

	node, err := New(cliCtx)
	require.NoError(t, err)
	defer node.Close()

	assert.True(t, logsContain(hook, "Removing database"))
}

func TestResolveUpstreamURLs_YamlFile(t *testing.T) {
	tmp := t.TempDir()
	listPath := filepath.Join(tmp, "upstreams.yaml")
	content := "- http://node1.gonka.ai:8000\n- http://node2.gonka.ai:8000\n"
	require.NoError(t, os.WriteFile(listPath, []byte(content), 0644))

	node, err := New(newTestContext(t, filepath.Join(tmp, "datadirtest")))
	require.NoError(t, err)
	defer node.Close()

	urls, err := node.resolveUpstreamURLs([]string{listPath, "http://node3.gonka.ai:8000"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://node1.gonka.ai:8000",
		"http://node2.gonka.ai:8000",
		"http://node3.gonka.ai:8000",
	}, urls)
}

func TestResolveUpstreamURLs_RemoteJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte(`["http://node1.gonka.ai:8000","http://node2.gonka.ai:8000"]`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	node, err := New(newTestContext(t, filepath.Join(t.TempDir(), "datadirtest")))
	require.NoError(t, err)
	defer node.Close()

	urls, err := node.resolveUpstreamURLs([]string{srv.URL + "/seeds.json", "http://node3.gonka.ai:8000"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://node1.gonka.ai:8000",
		"http://node2.gonka.ai:8000",
		"http://node3.gonka.ai:8000",
	}, urls)
}
