package cadscript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_BoxScript(t *testing.T) {
	solid, err := New().Execute(`result = cad.Workplane("XY").Box(10, 20, 30)`)
	require.NoError(t, err)
	require.NotNil(t, solid)
	assert.Len(t, solid.Triangles, 12)
}

func TestExecute_ChainedPrimitives(t *testing.T) {
	script := strings.Join([]string{
		`base := cad.Workplane("XY").Box(40, 40, 5)`,
		`peg := cad.Workplane("XY").Cylinder(20, 4).Translate(0, 0, 12)`,
		`result = base.Add(peg)`,
	}, "\n")

	solid, err := New().Execute(script)
	require.NoError(t, err)
	assert.NotEmpty(t, solid.Triangles)
}

func TestExecute_SketchExtrude(t *testing.T) {
	script := strings.Join([]string{
		`sk := cad.Sketch().AddRect(10, 6)`,
		`result = cad.Workplane("XY").Extrude(sk, 4)`,
	}, "\n")

	solid, err := New().Execute(script)
	require.NoError(t, err)
	assert.NotEmpty(t, solid.Triangles)
}

func TestExecute_SyntaxErrorCarriesScript(t *testing.T) {
	script := `result = cad.Workplane("XY".Box(10, 20, 30)`

	_, err := New().Execute(script)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindSyntax, execErr.Kind)
	assert.Contains(t, err.Error(), "Generated code:")
	assert.Contains(t, err.Error(), script)
}

func TestExecute_KernelPanicIsRuntimeError(t *testing.T) {
	script := `result = cad.Workplane("XY").Box(-1, 20, 30)`

	_, err := New().Execute(script)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindRuntime, execErr.Kind)
	assert.Contains(t, execErr.Detail, "box dimensions must be positive")
	assert.Contains(t, err.Error(), script)
}

func TestExecute_UnknownWorkplaneIsRuntimeError(t *testing.T) {
	_, err := New().Execute(`result = cad.Workplane("AB").Box(1, 1, 1)`)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindRuntime, execErr.Kind)
}

func TestExecute_NonModelResultIsInvalid(t *testing.T) {
	script := `result = 5`

	_, err := New().Execute(script)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindInvalidResult, execErr.Kind)
	assert.Contains(t, err.Error(), "'result'")
	assert.Contains(t, err.Error(), script)
}

func TestExecute_MissingResultIsInvalid(t *testing.T) {
	script := `wp := cad.Workplane("XY").Box(1, 2, 3)
_ = wp`

	_, err := New().Execute(script)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindInvalidResult, execErr.Kind)
}

func TestExecute_EmptyWorkplaneResultIsInvalid(t *testing.T) {
	script := `result = cad.Workplane("XY")`

	_, err := New().Execute(script)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindInvalidResult, execErr.Kind)
	assert.Contains(t, execErr.Detail, "no solid geometry")
}

func TestExecute_UndefinedSymbolIsSyntaxError(t *testing.T) {
	_, err := New().Execute(`result = os.Getenv("HOME")`)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindSyntax, execErr.Kind)
}

func TestExecute_FreshInterpreterPerCall(t *testing.T) {
	e := New()
	_, err := e.Execute(`leak := 1
_ = leak
result = cad.Workplane("XY").Box(1, 1, 1)`)
	require.NoError(t, err)

	// a prior run's bindings must not be visible
	_, err = e.Execute(`result = cad.Workplane("XY").Box(float64(leak), 1, 1)`)
	require.Error(t, err)
}
