package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
	"github.com/rishabhrocktheparty-ai/Blackgpt/database"
	"github.com/rishabhrocktheparty-ai/Blackgpt/logging"
	"github.com/rishabhrocktheparty-ai/Blackgpt/provenance"
)

// run executes the root command with args and returns stdout. Flag values
// persist on the package-level commands, so they are reset first.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	validateTags = nil
	validateSourceType = "MANUAL_UPLOAD"
	validateJSON = false
	require.NoError(t, validateCmd.Flags().Set("list", "false"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "blackgpt "+Version+"\n", out)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "clean signal",
			args: []string{"--tags", "reddit:public", "BTC volume spiking on major exchanges"},
			want: "ACCEPTED\n",
		},
		{
			name: "soft flag",
			args: []string{"--tags", "reddit:public", "Anonymous whale moving funds"},
			want: "ACCEPTED (requires review)",
		},
		{
			name:    "disallowed pattern",
			args:    []string{"--tags", "reddit:public", "Found on the dark web forum"},
			want:    "REJECTED",
			wantErr: true,
		},
		{
			name:    "unknown tag",
			args:    []string{"--tags", "darkweb:forum", "BTC volume spiking"},
			want:    "invalid provenance tags: darkweb:forum",
			wantErr: true,
		},
		{
			name:    "unknown source type",
			args:    []string{"--tags", "reddit:public", "--source-type", "FORUM", "BTC volume spiking"},
			want:    "REJECTED",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"validate"}, tt.args...)...)
			if tt.wantErr {
				assert.ErrorIs(t, err, errRejected)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestValidate_JSON(t *testing.T) {
	out, err := run(t, "validate", "--json", "--tags", "news:licensed,exchange:api", "--source-type", "NEWS_API", "ETH gas fees at yearly low")
	require.NoError(t, err)

	var res provenance.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsValid)
	assert.False(t, res.Flagged)
}

func TestValidate_List(t *testing.T) {
	out, err := run(t, "validate", "--list")
	require.NoError(t, err)
	for _, tag := range provenance.AllowedTags() {
		assert.Contains(t, out, tag)
	}
	assert.Contains(t, out, "MANUAL_UPLOAD")
}

func TestValidate_RequiresText(t *testing.T) {
	_, err := run(t, "validate", "--tags", "reddit:public")
	assert.Error(t, err)
}

func TestBuildApp(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Cache.Type = "memory"
	cfg.Events.Type = "none"

	a, err := buildApp(context.Background(), cfg, database.OpenTest(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)

	for _, path := range []string{"/health", "/api/v1/provenance/tags", "/metrics"} {
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestBuildApp_BadCache(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Cache.Type = "memcached"

	_, err = buildApp(context.Background(), cfg, database.OpenTest(t), logging.Discard())
	assert.ErrorContains(t, err, "init cache")
}

func TestNewAggregator_DemoModeHasAllSources(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Connectors.DemoMode = true

	agg := newAggregator(cfg, nil, logging.Discard(), nil)
	assert.Equal(t, []string{"NewsAPI", "Reddit", "CoinGecko"}, agg.Sources())
}

func TestShutdownTimeout(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 77*time.Second, shutdownTimeout(cfg))

	cfg.Server.ShutdownTimeout = 3 * time.Minute
	assert.Equal(t, 3*time.Minute, shutdownTimeout(cfg))
}
