package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/rowflow/internal/runtime"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/dsl"
	"github.com/aretw0/rowflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Filter(t *testing.T) {
	b := dsl.New("filter")
	b.Add("v1").Text()
	b.Add("f1").Filter().
		EnabledWhen(func(row domain.Row) bool { return row["v1"] == "adult" }).
		Skip("v3")
	b.Add("v2").Numeric()
	b.Add("v3").Text()

	runFlowCases(t, b.MustBuild(), []flowCase{
		{
			name: "filter closes the block",
			row:  domain.Row{"v1": "child"},
			states: map[string]domain.State{
				"v1": domain.StateValid,
				"f1": domain.StateSkipped,
				"v2": domain.StateSkipped,
				"v3": domain.StateActual,
			},
			next:       map[string]string{"v1": "v3", "f1": "v3", "v2": "v3", "v3": ""},
			current:    "v3",
			firstEmpty: "v3",
			summary:    domain.SummaryIncomplete,
		},
		{
			name: "filter opens the block",
			row:  domain.Row{"v1": "adult"},
			states: map[string]domain.State{
				"f1": domain.StateValid,
				"v2": domain.StateActual,
				"v3": domain.StateNotYet,
			},
			next:       map[string]string{"v1": "v2", "f1": "", "v2": "v3"},
			current:    "v2",
			firstEmpty: "v2",
			summary:    domain.SummaryIncomplete,
		},
	})
}

func TestEngine_FreeEntry(t *testing.T) {
	t.Run("inside skip", func(t *testing.T) {
		b := dsl.New("free")
		b.Add("v1").Text()
		b.Add("v2").Option("1", "v4").Option("2", "")
		b.Add("v3").Text().FreeEntry()
		b.Add("v4").Text()

		engine := runtime.NewEngine(nil)
		res, err := engine.Validate(context.Background(), b.MustBuild(),
			domain.Row{"v1": "A", "v2": 1, "v3": "note"}, domain.Options{})
		require.NoError(t, err)

		fb := res.Feedback["v3"]
		assert.Equal(t, domain.StateSkipped, fb.State)
		assert.True(t, fb.HasValue)
		assert.False(t, fb.HasProblem)
		assert.Empty(t, res.FirstFailure)
		assert.Equal(t, domain.SummaryIncomplete, res.Summary)
	})

	b := dsl.New("free")
	b.Add("v1").Text().FreeEntry()
	b.Add("v2").Text().FreeEntry()
	b.Add("v3").Text()

	runFlowCases(t, b.MustBuild(), []flowCase{
		{
			name: "free answers alone keep the row empty",
			row:  domain.Row{"v1": "x"},
			states: map[string]domain.State{
				"v1": domain.StateValid,
				"v2": domain.StateActual,
			},
			current:    "v2",
			firstEmpty: "v2",
			summary:    domain.SummaryEmpty,
		},
		{
			name: "free answer after current is not an omission",
			row:  domain.Row{"v2": "x"},
			states: map[string]domain.State{
				"v1": domain.StateActual,
				"v2": domain.StateNotYet,
				"v3": domain.StateNotYet,
			},
			current:    "v1",
			firstEmpty: "v1",
			summary:    domain.SummaryEmpty,
		},
	})
}

func TestEngine_Enabling(t *testing.T) {
	reg := registry.NewRegistry()
	reg.RegisterEnabling("said_yes", func(row domain.Row) bool { return row["v1"] == "yes" })

	b := dsl.New("enabling")
	b.Add("v1").Text()
	b.Add("v2").Text().EnabledBy("said_yes")
	b.Add("v3").Text()
	schema := b.MustBuild()

	engine := runtime.NewEngine(reg)

	t.Run("disabled and empty", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, domain.Row{"v1": "no"}, domain.Options{})
		require.NoError(t, err)

		fb := res.Feedback["v2"]
		assert.Equal(t, domain.StateSkipped, fb.State)
		assert.True(t, fb.Disabled)
		assert.True(t, fb.NotEnabled)
		assert.Equal(t, "v3", res.NextOf("v1"))
		assert.Equal(t, "v3", res.Current)
	})

	t.Run("disabled but answered", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, domain.Row{"v1": "no", "v2": "x"}, domain.Options{})
		require.NoError(t, err)

		assert.Equal(t, domain.StateSkipOutOfFlow, res.Feedback["v2"].State)
		assert.True(t, res.Feedback["v2"].NotEnabled)
		assert.Equal(t, "v2", res.FirstFailure)
		assert.Equal(t, domain.SummaryProblems, res.Summary)
	})

	t.Run("enabled", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, domain.Row{"v1": "yes"}, domain.Options{})
		require.NoError(t, err)

		assert.Equal(t, domain.StateActual, res.Feedback["v2"].State)
		assert.False(t, res.Feedback["v2"].NotEnabled)
		assert.Equal(t, "v2", res.NextOf("v1"))
	})
}

func TestEngine_ConfigurationErrors(t *testing.T) {
	engine := runtime.NewEngine(nil)
	ctx := context.Background()

	t.Run("unknown enabling function", func(t *testing.T) {
		b := dsl.New("broken")
		b.Add("v1").Text().EnabledBy("inexistente")

		// The reference is checked even though no data reaches the variable.
		res, err := engine.Validate(ctx, b.MustBuild(), domain.Row{}, domain.Options{})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, domain.ErrUnknownFunction))

		var unknown *domain.UnknownFunctionError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "inexistente", unknown.Name)
		assert.Equal(t, domain.KindEnabling, unknown.Kind)

		var verr *domain.VariableError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "v1", verr.Variable)
	})

	t.Run("options variable without options", func(t *testing.T) {
		schema := domain.NewSchema("broken")
		require.NoError(t, schema.Add("v1", domain.Variable{Type: domain.TypeOptions}))

		_, err := engine.Validate(ctx, schema, domain.Row{"v1": 1}, domain.Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMissingOptions))

		res, err := engine.Validate(ctx, schema, domain.Row{}, domain.Options{})
		require.NoError(t, err)
		assert.Equal(t, domain.StateActual, res.Feedback["v1"].State)
	})

	t.Run("unknown value function only matters with auto-fill", func(t *testing.T) {
		b := dsl.New("broken")
		b.Add("v1").Text().AutoFillBy("missing")
		schema := b.MustBuild()

		_, err := engine.Validate(ctx, schema, domain.Row{}, domain.Options{})
		require.NoError(t, err)

		_, err = engine.Validate(ctx, schema, domain.Row{}, domain.Options{AutoFill: true})
		var unknown *domain.UnknownFunctionError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, domain.KindValue, unknown.Kind)
	})

	t.Run("nil schema", func(t *testing.T) {
		_, err := engine.Validate(ctx, nil, domain.Row{}, domain.Options{})
		assert.Error(t, err)
	})
}

func TestEngine_AutoFill(t *testing.T) {
	reg := registry.NewRegistry()
	reg.RegisterValue("greeting", func(domain.Row) any { return "hi" })

	b := dsl.New("autofill")
	b.Add("v1").Text()
	b.Add("v2").Numeric().AutoFillWith(func(row domain.Row) any { return 42 })
	b.Add("v3").Text().AutoFillBy("greeting")
	b.Add("v4").Text().Optional().AutoFillWith(func(domain.Row) any { return nil })
	schema := b.MustBuild()

	engine := runtime.NewEngine(reg)
	row := domain.Row{"v1": "A"}

	res, err := engine.Validate(context.Background(), schema, row, domain.Options{AutoFill: true})
	require.NoError(t, err)

	// Only the current variable is reached by the flow; v3 is still pending.
	assert.Equal(t, map[string]any{"v2": 42}, res.AutoFilled)
	assert.Equal(t, domain.StateActual, res.Feedback["v2"].State)
	assert.NotContains(t, row, "v2")

	res, err = engine.Validate(context.Background(), schema, row, domain.Options{})
	require.NoError(t, err)
	assert.Nil(t, res.AutoFilled)

	res, err = engine.Validate(context.Background(), schema, domain.Row{"v1": "A", "v2": 1}, domain.Options{AutoFill: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v3": "hi"}, res.AutoFilled)
}

func TestEngine_CallbacksCannotMutateRow(t *testing.T) {
	b := dsl.New("mutation")
	b.Add("v1").Text()
	b.Add("v2").Text().EnabledWhen(func(row domain.Row) bool {
		row["v1"] = "mutated"
		row["v3"] = "injected"
		return true
	})
	b.Add("v3").Text()

	row := domain.Row{"v1": "A"}
	res, err := runtime.NewEngine(nil).Validate(context.Background(), b.MustBuild(), row, domain.Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.Row{"v1": "A"}, row)
	assert.Equal(t, domain.StateValid, res.Feedback["v1"].State)
	assert.Equal(t, domain.StateNotYet, res.Feedback["v3"].State)
}

func TestEngine_OutputModes(t *testing.T) {
	engine := runtime.NewEngine(nil)
	schema := simpleSchema(0, 98)
	row := domain.Row{"v1": "A", "v2": 1}

	detailed, legacy := true, false

	t.Run("both", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, row, domain.Options{})
		require.NoError(t, err)
		assert.NotNil(t, res.Feedback)
		assert.NotNil(t, res.FeedbackSummary)
		assert.Equal(t, domain.StateSkipped, res.LegacyStates["v3"])
		assert.Equal(t, "v4", res.LegacyNext["v2"])
	})

	t.Run("detailed", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, row, domain.Options{MultiStateOutput: &detailed})
		require.NoError(t, err)
		assert.NotNil(t, res.Feedback)
		assert.Nil(t, res.LegacyStates)
		assert.Nil(t, res.LegacyNext)
	})

	t.Run("legacy", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, row, domain.Options{MultiStateOutput: &legacy})
		require.NoError(t, err)
		assert.Nil(t, res.Feedback)
		assert.Nil(t, res.FeedbackSummary)
		assert.Equal(t, domain.StateActual, res.LegacyStates["v4"])
		assert.Equal(t, domain.SummaryIncomplete, res.Summary)
	})
}

func TestEngine_FeedbackFlags(t *testing.T) {
	engine := runtime.NewEngine(nil)
	schema := simpleSchema(0, 98)

	t.Run("empty row", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, domain.Row{}, domain.Options{})
		require.NoError(t, err)

		assert.Equal(t, domain.True, res.Feedback["v1"].Pending)
		assert.Equal(t, domain.Unknown, res.Feedback["v2"].Pending)

		sum := res.FeedbackSummary
		require.NotNil(t, sum)
		assert.Equal(t, domain.StateNotYet, sum.State)
		assert.False(t, sum.HasValue)
		assert.False(t, sum.HasProblem)
		assert.Equal(t, domain.True, sum.Pending)
	})

	t.Run("omission", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema, domain.Row{"v1": "A", "v3": 1}, domain.Options{})
		require.NoError(t, err)

		assert.True(t, res.Feedback["v2"].HasProblem)
		assert.Equal(t, domain.True, res.Feedback["v2"].Pending)
		assert.True(t, res.Feedback["v3"].HasValue)
		assert.Equal(t, domain.False, res.Feedback["v3"].Pending)

		sum := res.FeedbackSummary
		assert.Equal(t, domain.StateOmitted, sum.State)
		assert.True(t, sum.HasValue)
		assert.True(t, sum.HasProblem)
		assert.Equal(t, domain.True, sum.Pending)
	})

	t.Run("complete", func(t *testing.T) {
		res, err := engine.Validate(context.Background(), schema,
			domain.Row{"v1": "A", "v2": 2, "v3": 5, "v4": "B"}, domain.Options{})
		require.NoError(t, err)

		sum := res.FeedbackSummary
		assert.Equal(t, domain.StateValid, sum.State)
		assert.Equal(t, domain.False, sum.Pending)
	})
}

func TestEngine_Idempotent(t *testing.T) {
	engine := runtime.NewEngine(nil)
	schema := simpleSchema(0, 98)
	rows := []domain.Row{
		{},
		{"v1": "A", "v2": 1},
		{"v1": "A", "v3": 1},
		{"v1": "A", "v2": 15, "v3": 200, "v4": "B"},
	}

	for _, row := range rows {
		first, err := engine.Validate(context.Background(), schema, row, domain.Options{})
		require.NoError(t, err)
		second, err := engine.Validate(context.Background(), schema, row, domain.Options{})
		require.NoError(t, err)

		assert.Nil(t, domain.Diff(first, second))
		assert.Equal(t, first, second)
	}
}

func TestEngine_DeclarationOrder(t *testing.T) {
	b := dsl.New("order")
	names := []string{"z", "a", "m", "b"}
	for _, name := range names {
		b.Add(name).Text()
	}

	res, err := runtime.NewEngine(nil).Validate(context.Background(), b.MustBuild(), domain.Row{}, domain.Options{})
	require.NoError(t, err)

	assert.Equal(t, names, res.Order)
	assert.Equal(t, "z", res.Current)
	assert.Equal(t, "a", res.NextOf("z"))
	assert.Equal(t, "m", res.NextOf("a"))
}

func TestEngine_NoAnswerValues(t *testing.T) {
	engine := runtime.NewEngine(nil, runtime.WithNoAnswerValues(99))
	schema := simpleSchema(0, 98)

	res, err := engine.Validate(context.Background(), schema, domain.Row{"v1": "A", "v2": 2, "v3": 99}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateValid, res.Feedback["v3"].State)

	res, err = engine.Validate(context.Background(), schema, domain.Row{"v1": "A", "v2": 2, "v3": -9}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateOutOfRange, res.Feedback["v3"].State)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var variables []string
	var validated *domain.ValidationEvent

	engine := runtime.NewEngine(nil, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnVariable: func(_ context.Context, ev *domain.VariableEvent) {
			variables = append(variables, ev.Variable)
		},
		OnValidated: func(_ context.Context, ev *domain.ValidationEvent) {
			validated = ev
		},
	}))

	_, err := engine.Validate(context.Background(), simpleSchema(0, 98), domain.Row{"v1": "A"}, domain.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"v1", "v2", "v3", "v4"}, variables)
	require.NotNil(t, validated)
	assert.Equal(t, "simple", validated.Schema)
	assert.Equal(t, domain.SummaryIncomplete, validated.Summary)
	assert.Equal(t, "v2", validated.Current)
	assert.NoError(t, validated.Err)

	b := dsl.New("broken")
	b.Add("v1").Text().EnabledBy("missing")
	_, err = engine.Validate(context.Background(), b.MustBuild(), domain.Row{}, domain.Options{})
	require.Error(t, err)
	require.NotNil(t, validated)
	assert.ErrorIs(t, validated.Err, domain.ErrUnknownFunction)
}
