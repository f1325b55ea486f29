package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/config"
	"go_branch_chat/models"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
)

func memoryConfig() *config.Config {
	return &config.Config{
		AllowOrigins: "*",
		StoreType:    "memory",
		CacheTTL:     time.Minute,
		ExportURLTTL: time.Minute,
		LLMModel:     "gpt-4o-mini",
		LLMTimeout:   time.Second,
	}
}

// serve runs the real server on a loopback listener.
func serve(t *testing.T) (*App, string) {
	t.Helper()
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	server := app.NewServer()
	assert.True(t, server.Config().Immutable)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = server.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = server.Shutdown()
	})
	return app, "http://" + ln.Addr().String()
}

func call(t *testing.T, client *http.Client, method, url string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestKeepAliveRequestsShareTreeLock(t *testing.T) {
	app, base := serve(t)
	client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4}}

	status, body := call(t, client, http.MethodPost, base+"/api/trees", models.CreateTreeReq{
		Name:             "Keep-alive",
		FirstUserMessage: "Hi",
		FirstAIResponse:  "Hello!",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created snapshot.Snapshot
	require.NoError(t, json.Unmarshal(body, &created))
	root, ok := created.Nodes.Get(created.RootID)
	require.True(t, ok)
	assert.Nil(t, root.ParentID)

	status, _ = call(t, client, http.MethodPatch, base+"/api/trees/"+created.ID, models.RenameTreeReq{Name: "Renamed"})
	require.Equal(t, http.StatusOK, status)

	// reuse the same connections with ids of the same length
	other := strings.Repeat("y", len(created.ID))
	for i := 0; i < 20; i++ {
		status, _ = call(t, client, http.MethodPatch, base+"/api/trees/"+other, models.RenameTreeReq{Name: "x"})
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = call(t, client, http.MethodGet, base+"/api/trees/"+other, nil)
		assert.Equal(t, http.StatusNotFound, status)
	}

	const writers = 12
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, body := call(t, client, http.MethodPost, base+"/api/trees/"+created.ID+"/messages",
				models.ExchangeReq{UserMessage: fmt.Sprintf("q%d", i), AIResponse: "a"})
			assert.Equal(t, http.StatusCreated, status, string(body))
		}(i)
	}
	wg.Wait()

	final, err := app.Services.TreeService.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, tree.Validate(final))
	assert.Equal(t, "Renamed", final.Name)
	assert.Len(t, final.Nodes, writers+1)
	assert.Equal(t, writers, tree.Depth(final))
}
