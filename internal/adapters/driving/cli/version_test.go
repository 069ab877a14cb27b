package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	saved := version
	t.Cleanup(func() { version = saved })

	tests := []struct {
		name    string
		version string
		args    []string
		want    string
	}{
		{"default build", "dev", []string{"version"}, "medindex dev (" + runtime.Version()},
		{"release build", "v0.3.1", []string{"version"}, "medindex v0.3.1 (" + runtime.Version()},
		{"short", "v0.3.1", []string{"version", "--short"}, "v0.3.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version = tt.version
			out, err := execute(tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, err := execute("version", "extra")
	assert.Error(t, err)
}
