package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	b := NewBuilder()

	ev := b.Build(RequestInfo{
		Path:    "/gameplay",
		FullURL: "http://mathg.test/gameplay",
		Method:  "GET",
	}, Input{Action: "Nuevo inicio de sesión"})

	assert.Equal(t, "Nuevo inicio de sesión", ev.Action)
	assert.Equal(t, 200, ev.StatusCode)
	assert.Nil(t, ev.UserID)
	assert.Nil(t, ev.ExecutionTime)

	require.Contains(t, ev.Metadata, "method")
	require.Contains(t, ev.Metadata, "url")
	require.Contains(t, ev.Metadata, "referer")
	assert.Equal(t, "GET", ev.Metadata["method"])
	assert.Equal(t, "http://mathg.test/gameplay", ev.Metadata["url"])
	assert.Nil(t, ev.Metadata["referer"])
	assert.NotEmpty(t, ev.LoggedAt)
}

func TestBuild_RouteFallsBackToPath(t *testing.T) {
	b := NewBuilder()

	ev := b.Build(RequestInfo{Path: "/galaxies/1"}, Input{Action: "Galaxia vista"})
	assert.Equal(t, "/galaxies/1", ev.Route)

	ev = b.Build(RequestInfo{Route: "galaxies.show", Path: "/galaxies/1"}, Input{Action: "Galaxia vista"})
	assert.Equal(t, "galaxies.show", ev.Route)
}

func TestBuild_ExecutionTime(t *testing.T) {
	now := time.Date(2025, 11, 26, 15, 20, 0, 0, time.UTC)
	b := NewBuilderWithClock(func() time.Time { return now })

	started := now.Add(-45200 * time.Microsecond)
	ev := b.Build(RequestInfo{}, Input{Action: "combate", StartedAt: started})

	require.NotNil(t, ev.ExecutionTime)
	assert.InDelta(t, 45.2, *ev.ExecutionTime, 0.001)
}

func TestBuild_ExecutionTimeRounding(t *testing.T) {
	now := time.Date(2025, 11, 26, 15, 20, 0, 0, time.UTC)
	b := NewBuilderWithClock(func() time.Time { return now })

	started := now.Add(-1234567 * time.Nanosecond)
	ev := b.Build(RequestInfo{}, Input{Action: "combate", StartedAt: started})

	require.NotNil(t, ev.ExecutionTime)
	assert.Equal(t, 1.23, *ev.ExecutionTime)
}

func TestBuild_KnownOutcome(t *testing.T) {
	b := NewBuilder()

	ev := b.Build(RequestInfo{}, Input{Action: "borrado", Outcome: KnownOutcome(404)})
	assert.Equal(t, 404, ev.StatusCode)
}

func TestBuild_ExtraMetadataMerged(t *testing.T) {
	b := NewBuilder()

	ev := b.Build(RequestInfo{
		FullURL: "http://mathg.test/stages",
		Method:  "POST",
		Referer: "http://mathg.test/galaxies",
	}, Input{
		Action:   "Etapa creada",
		Metadata: map[string]any{"stage": "nebulosa", "user_role": "docente"},
	})

	assert.Equal(t, "nebulosa", ev.Metadata["stage"])
	assert.Equal(t, "docente", ev.Metadata["user_role"])
	assert.Equal(t, "POST", ev.Metadata["method"])
	assert.Equal(t, "http://mathg.test/galaxies", ev.Metadata["referer"])
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		forwardedProto string
		expected       string
	}{
		{
			name:           "rewrites insecure scheme behind TLS proxy",
			url:            "http://mathg.test/dashboard",
			forwardedProto: "https",
			expected:       "https://mathg.test/dashboard",
		},
		{
			name:           "already secure",
			url:            "https://mathg.test/dashboard",
			forwardedProto: "https",
			expected:       "https://mathg.test/dashboard",
		},
		{
			name:           "no forwarding header",
			url:            "http://mathg.test/dashboard",
			forwardedProto: "",
			expected:       "http://mathg.test/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeURL(tt.url, tt.forwardedProto))
		})
	}
}

func TestBuild_URLNormalizedInMetadata(t *testing.T) {
	b := NewBuilder()

	ev := b.Build(RequestInfo{
		FullURL:        "http://mathg.test/login?next=/dashboard",
		ForwardedProto: "https",
		Method:         "POST",
	}, Input{Action: "login"})

	assert.Equal(t, "https://mathg.test/login?next=/dashboard", ev.Metadata["url"])
}
