package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
)

type stubAction struct{}

func (stubAction) Execute(_ context.Context, _ models.Document) (models.Document, error) {
	return models.Document{"done": true}, nil
}

type stubFactory struct {
	id     string
	schema map[string]any
}

func (f stubFactory) ID() string          { return f.id }
func (f stubFactory) Name() string        { return f.id }
func (f stubFactory) Description() string { return "stub" }

func (f stubFactory) Create(_ models.Document) (Action, error) {
	return stubAction{}, nil
}

func (f stubFactory) Schema() map[string]any { return f.schema }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateAction(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterAction(stubFactory{id: "stub"})

	action, err := reg.CreateAction("stub", nil)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.Document{})
	require.NoError(t, err)
	assert.Equal(t, models.Document{"done": true}, result)
}

func TestCreateActionUnknownType(t *testing.T) {
	reg := NewRegistry(testLogger())

	_, err := reg.CreateAction("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActionNotRegistered)
}

func TestActionFactoriesSorted(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterAction(stubFactory{id: "zebra"})
	reg.RegisterAction(stubFactory{id: "alpha"})

	factories := reg.ActionFactories()
	require.Len(t, factories, 2)
	assert.Equal(t, "alpha", factories[0].ID())
	assert.Equal(t, "zebra", factories[1].ID())
}

func TestSkipResult(t *testing.T) {
	result := SkipResult("nothing to do")

	assert.Equal(t, true, result["skipped"])
	assert.Equal(t, "nothing to do", result["reason"])
}

func TestNotImplementedResult(t *testing.T) {
	result := NotImplementedResult("escalate_ticket")

	assert.Equal(t, true, result["skipped"])
	assert.Equal(t, "Action escalate_ticket not implemented", result["reason"])
}

func TestValidateActionConfig(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"next_status": map[string]any{"type": "string"},
		},
		"required": []string{"next_status"},
	}

	reg := NewRegistry(testLogger())
	reg.RegisterAction(stubFactory{id: "update_status", schema: schema})

	err := reg.ValidateActionConfig("update_status", models.Document{"next_status": "confirmed"})
	assert.NoError(t, err)

	err = reg.ValidateActionConfig("update_status", models.Document{})
	assert.Error(t, err)

	err = reg.ValidateActionConfig("unknown", models.Document{})
	assert.ErrorIs(t, err, ErrActionNotRegistered)
}

func TestValidateActionConfigNoSchema(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterAction(stubFactory{id: "free_form"})

	err := reg.ValidateActionConfig("free_form", models.Document{"anything": "goes"})
	assert.NoError(t, err)
}
