package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/core/controller"
)

func newTestFormatter(format Format) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, logs bytes.Buffer
	f := NewFormatter(format, &out)
	f.SetLogWriter(&logs)
	return f, &out, &logs
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("pretty")
	require.NoError(t, err)
	assert.Equal(t, FormatPretty, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestFormatter_PrintStateJSON(t *testing.T) {
	f, out, _ := newTestFormatter(FormatJSON)
	require.NoError(t, f.PrintState(controller.StateView{Session: "connected", Signer: "0x01"}))

	var decoded controller.StateView
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "connected", decoded.Session)
	assert.Equal(t, "0x01", decoded.Signer)
}

func TestFormatter_PrintStateText(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	f, out, _ := newTestFormatter(FormatText)
	require.NoError(t, f.PrintState(controller.StateView{Session: "disconnected"}))
	assert.Contains(t, out.String(), "No farms yet.")
}

func TestFormatter_Silent(t *testing.T) {
	f, out, logs := newTestFormatter(FormatPretty)
	f.SetSilent(true)

	require.NoError(t, f.Print(map[string]int{"a": 1}))
	f.PrintSuccess("done")
	f.PrintError(errors.New("boom"))

	assert.Empty(t, out.String())
	assert.NotContains(t, logs.String(), "done")
	assert.Contains(t, logs.String(), "boom")
}
