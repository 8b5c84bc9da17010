package runtime_test

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/architeacher/criteria/pkg/config"
	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/architeacher/criteria/pkg/document"
	"github.com/architeacher/criteria/pkg/logger"
	"github.com/architeacher/criteria/pkg/runtime"
	"github.com/architeacher/criteria/pkg/sqlcriteria"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testConfig() config.Config {
	return config.Config{
		App:     config.App{ServiceName: "criteria", ServiceVersion: "test", Environment: "development"},
		Logging: config.Logging{Level: "debug", Format: "json"},
		Renderer: config.Renderer{
			Placeholder: "dollar",
			Columns:     map[string]string{"createdAt": "created_at"},
		},
		Cache: config.Cache{Enabled: true, TTL: time.Minute, Size: 16},
		Telemetry: config.Telemetry{
			ServiceName: "criteria-test",
			Traces:      config.Traces{Exporter: "none", SamplerRatio: 1},
		},
	}
}

func counters(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}

	return out
}

func TestRuntime_Render(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	reader := sdkmetric.NewManualReader()

	rt, err := runtime.New(context.Background(),
		runtime.WithStaticConfig(testConfig()),
		runtime.WithStaticLogger(logger.NewBufferedTestLogger(&logs)),
		runtime.WithMetricReader(reader),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, rt.Shutdown(context.Background()))
	})

	snap := criteria.NewCriteria().
		GreaterThan("createdAt", "2024-01-01").
		IncludeInGroup("state", "available", "in-use").
		Snapshot()

	for range 2 {
		stmt, err := rt.Render(context.Background(), "devices", snap)

		require.NoError(t, err)
		require.Equal(t, "SELECT * FROM devices WHERE (created_at > $1 AND state IN ($2,$3))", stmt.SQL)
		require.Equal(t, []any{"2024-01-01", "available", "in-use"}, stmt.Args)
	}

	require.Contains(t, logs.String(), `"cache":"MISS"`)
	require.Contains(t, logs.String(), `"cache":"HIT"`)
	require.Contains(t, logs.String(), `"fingerprint":"`)

	collected := counters(t, reader)
	require.Equal(t, int64(2), collected["queries.select.success"])
	require.Equal(t, int64(1), collected["cache.select.miss"])
	require.Equal(t, int64(1), collected["cache.select.hit"])
}

func TestRuntime_RenderFailure(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()

	cfg := testConfig()
	cfg.Renderer.StrictColumns = true

	rt, err := runtime.New(context.Background(),
		runtime.WithStaticConfig(cfg),
		runtime.WithStaticLogger(logger.NewTestLogger()),
		runtime.WithMetricReader(reader),
	)
	require.NoError(t, err)

	_, err = rt.Render(context.Background(), "devices", criteria.NewCriteria().Equals("brand", "Apple").Snapshot())

	require.ErrorIs(t, err, sqlcriteria.ErrUnknownColumn)
	require.Equal(t, int64(1), counters(t, reader)["queries.select.failure"])
}

type opaqueScore struct {
	v float64
}

func TestRuntime_RenderWithoutUsableFingerprint(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name              string
		value             any
		cacheEnabled      bool
		expectedArgs      []any
		expectedStatus    string
		expectFingerprint bool
	}{
		{
			name:              "infinity with cache enabled",
			value:             math.Inf(1),
			cacheEnabled:      true,
			expectedArgs:      []any{math.Inf(1)},
			expectedStatus:    `"cache":"MISS"`,
			expectFingerprint: true,
		},
		{
			name:              "infinity with cache disabled",
			value:             math.Inf(1),
			cacheEnabled:      false,
			expectedArgs:      []any{math.Inf(1)},
			expectedStatus:    `"cache":"BYPASS"`,
			expectFingerprint: true,
		},
		{
			name:              "opaque value with cache enabled",
			value:             opaqueScore{v: 1},
			cacheEnabled:      true,
			expectedArgs:      []any{opaqueScore{v: 1}},
			expectedStatus:    `"cache":"BYPASS"`,
			expectFingerprint: false,
		},
		{
			name:              "opaque value with cache disabled",
			value:             opaqueScore{v: 1},
			cacheEnabled:      false,
			expectedArgs:      []any{opaqueScore{v: 1}},
			expectedStatus:    `"cache":"BYPASS"`,
			expectFingerprint: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer

			cfg := testConfig()
			cfg.Cache.Enabled = tc.cacheEnabled

			rt, err := runtime.New(context.Background(),
				runtime.WithStaticConfig(cfg),
				runtime.WithStaticLogger(logger.NewBufferedTestLogger(&logs)),
			)
			require.NoError(t, err)

			stmt, err := rt.Render(context.Background(), "devices", criteria.NewCriteria().LessThan("score", tc.value).Snapshot())

			require.NoError(t, err)
			require.Equal(t, "SELECT * FROM devices WHERE (score < $1)", stmt.SQL)
			require.Equal(t, tc.expectedArgs, stmt.Args)
			require.Contains(t, logs.String(), tc.expectedStatus)

			if tc.expectFingerprint {
				require.Contains(t, logs.String(), `"fingerprint":"`)

				return
			}

			require.Contains(t, logs.String(), "criteria cannot be fingerprinted")
			require.NotContains(t, logs.String(), `"fingerprint":"`)
		})
	}
}

func TestNew_LeavesCallerOptionsUntouched(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Logging.Level = "disabled"

	opts := make([]runtime.DependencyOption, 1, 16)
	opts[0] = runtime.WithStaticConfig(cfg)

	rt, err := runtime.New(context.Background(), opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, rt.Shutdown(context.Background()))
	})

	for i, opt := range opts[:cap(opts)] {
		if i == 0 {
			require.NotNil(t, opt)

			continue
		}

		require.Nil(t, opt)
	}
}

func TestRuntime_RenderCriteria(t *testing.T) {
	t.Parallel()

	rt, err := runtime.New(context.Background(),
		runtime.WithStaticConfig(testConfig()),
		runtime.WithStaticLogger(logger.NewTestLogger()),
	)
	require.NoError(t, err)

	cases := []struct {
		name        string
		crit        *criteria.Criteria
		fields      *criteria.Fields
		expectedSQL string
		expectedErr error
	}{
		{
			name:        "projection",
			crit:        criteria.NewCriteria().MarkNotEmpty("name"),
			fields:      criteria.NewFields("id", "createdAt"),
			expectedSQL: "SELECT id, created_at FROM devices WHERE (name IS NOT NULL)",
		},
		{
			name:        "null criteria select everything",
			crit:        criteria.NullCriteria(),
			fields:      criteria.NullFields(),
			expectedSQL: "SELECT * FROM devices",
		},
		{
			name:        "rejected call",
			crit:        criteria.NewCriteria().Equals("", 1),
			expectedErr: criteria.ErrInvalidFieldName,
		},
		{
			name:        "conflicting emptiness",
			crit:        criteria.NewCriteria().MarkEmpty("name").MarkNotEmpty("name"),
			expectedErr: criteria.ErrConflictingEmptiness,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stmt, err := rt.RenderCriteria(context.Background(), "devices", tc.crit, tc.fields)

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectedSQL, stmt.SQL)
		})
	}
}

func TestRuntime_RenderDocument(t *testing.T) {
	t.Parallel()

	rt, err := runtime.New(context.Background(),
		runtime.WithStaticConfig(testConfig()),
		runtime.WithStaticLogger(logger.NewTestLogger()),
	)
	require.NoError(t, err)

	data := []byte(`
predicates:
  - field: id
    operator: ranges
    values: [[2, 6]]
fields: [id]
`)

	stmt, err := rt.RenderDocument(context.Background(), "devices", data, document.FormatYAML)

	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM devices WHERE ((id >= $1 AND id <= $2))", stmt.SQL)
	require.Equal(t, []any{2, 6}, stmt.Args)

	_, err = rt.RenderDocument(context.Background(), "devices", []byte(`{"predicates": [`), document.FormatJSON)
	require.ErrorIs(t, err, document.ErrMalformed)
}

func TestRuntime_Tracing(t *testing.T) {
	t.Parallel()

	var spans bytes.Buffer

	cfg := testConfig()
	cfg.Telemetry.Traces.Enabled = true
	cfg.Telemetry.Traces.Exporter = "stdout"

	rt, err := runtime.New(context.Background(),
		runtime.WithStaticConfig(cfg),
		runtime.WithStaticLogger(logger.NewTestLogger()),
		runtime.WithSpanWriter(&spans),
	)
	require.NoError(t, err)

	_, err = rt.Render(context.Background(), "devices", criteria.NewCriteria().Equals("brand", "Apple").Snapshot())
	require.NoError(t, err)

	require.NoError(t, rt.Shutdown(context.Background()))
	require.Contains(t, spans.String(), `"Name":"query.select"`)
}

func TestRuntime_CacheDisabled(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	cfg := testConfig()
	cfg.Cache.Enabled = false

	rt, err := runtime.New(context.Background(),
		runtime.WithStaticConfig(cfg),
		runtime.WithStaticLogger(logger.NewBufferedTestLogger(&logs)),
	)
	require.NoError(t, err)

	_, err = rt.Render(context.Background(), "devices", criteria.NewCriteria().Snapshot())
	require.NoError(t, err)

	require.Contains(t, logs.String(), `"cache":"BYPASS"`)
	rt.PurgeCache()
}

func TestNew_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		mutate      func(cfg *config.Config)
		expectedErr error
	}{
		{
			name:        "unknown placeholder",
			mutate:      func(cfg *config.Config) { cfg.Renderer.Placeholder = "percent" },
			expectedErr: sqlcriteria.ErrUnknownPlaceholder,
		},
		{
			name:        "sampler ratio out of range",
			mutate:      func(cfg *config.Config) { cfg.Telemetry.Traces.SamplerRatio = 2 },
			expectedErr: config.ErrInvalidSamplerRatio,
		},
		{
			name: "unknown exporter",
			mutate: func(cfg *config.Config) {
				cfg.Telemetry.Traces.Enabled = true
				cfg.Telemetry.Traces.Exporter = "zipkin"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tc.mutate(&cfg)

			rt, err := runtime.New(context.Background(),
				runtime.WithStaticConfig(cfg),
				runtime.WithStaticLogger(logger.NewTestLogger()),
			)

			require.Error(t, err)
			require.Nil(t, rt)

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			}
		})
	}
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "disabled")
	t.Setenv("RENDERER_PLACEHOLDER", "question")
	t.Setenv("RENDERER_COLUMNS", "createdAt:created_at")

	rt, err := runtime.New(context.Background())
	require.NoError(t, err)

	require.Equal(t, "question", rt.Config().Renderer.Placeholder)

	stmt, err := rt.Render(context.Background(), "devices", criteria.NewCriteria().LessThan("createdAt", 5).Snapshot())

	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM devices WHERE (created_at < ?)", stmt.SQL)
	require.NoError(t, rt.Shutdown(context.Background()))
}
