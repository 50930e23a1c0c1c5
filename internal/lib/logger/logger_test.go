package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_LevelsPerEnv(t *testing.T) {
	tests := []struct {
		env       string
		wantDebug bool
		wantJSON  bool
	}{
		{env: EnvLocal, wantDebug: true, wantJSON: false},
		{env: EnvDev, wantDebug: true, wantJSON: true},
		{env: EnvProd, wantDebug: false, wantJSON: true},
		{env: "unknown", wantDebug: false, wantJSON: true},
	}

	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := newWithWriter(tc.env, &buf)

			log.Debug("dbg")
			log.Info("inf")

			out := buf.String()
			assert.Equal(t, tc.wantDebug, strings.Contains(out, "dbg"))
			assert.Contains(t, out, "inf")
			assert.Equal(t, tc.wantJSON, strings.HasPrefix(out, "{"))
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
}
