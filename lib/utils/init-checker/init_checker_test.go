package initchecker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type provider interface{ Name() string }

type impl struct{}

func (impl) Name() string { return "impl" }

func TestCheckInit(t *testing.T) {
	t.Run("all initialized check", func(t *testing.T) {
		var p provider = impl{}
		require.NoError(t, CheckInit("provider", p, "config", &struct{}{}))
	})

	t.Run("missing dependencies check", func(t *testing.T) {
		var p provider
		var cfg *struct{}
		err := CheckInit("provider", p, "config", cfg, "ok", impl{})
		require.EqualError(t, err, "dependencies not initialized: provider, config")
	})

	t.Run("bad arguments check", func(t *testing.T) {
		require.Error(t, CheckInit("provider"))
		require.Error(t, CheckInit(1, impl{}))
	})
}
