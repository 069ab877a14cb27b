package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_RequiresSearch(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr bool
	}{
		{"nil ports", nil, true},
		{"empty ports", &Ports{}, true},
		{"search only", &Ports{Search: &mockSearchService{}}, false},
		{"index without search", &Ports{Index: &mockIndexService{}}, true},
		{"all services", &Ports{
			Search: &mockSearchService{},
			Index:  &mockIndexService{},
			Ingest: &mockIngestService{},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.ports)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingSearchService)
				assert.Nil(t, server)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, server)
		})
	}
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.RunHTTP(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}
