package noflash

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitehead/internal/browsersim"
)

func TestScriptMeetsContract(t *testing.T) {
	report, err := Verify(context.Background(), Script)
	require.NoError(t, err)
	require.Len(t, report.Results, len(Scenarios()))
	assert.True(t, report.OK(), report.Summary())
	assert.Empty(t, report.Violations())
}

func TestStoredPreferenceNeverAddsClass(t *testing.T) {
	for _, dark := range []bool{true, false} {
		for _, value := range []string{"light", "dark", "system"} {
			b := browsersim.New(browsersim.Options{
				PrefersDark: dark,
				Storage:     map[string]string{StorageKey: value},
			})
			require.NoError(t, b.Run("noflash", Script))
			require.NoError(t, b.DispatchLoad())

			assert.Zero(t, browsersim.Count(b.Mutations(), browsersim.OpAddClass, TransientClass),
				"dark=%t stored=%q", dark, value)
		}
	}
}

func TestDarkFirstVisitAddsAndRemovesOnce(t *testing.T) {
	b := browsersim.New(browsersim.Options{PrefersDark: true})
	require.NoError(t, b.Run("noflash", Script))

	root := b.Root()
	assert.True(t, root.HasClass(TransientClass))
	v, ok := root.Attribute(ThemeAttribute)
	assert.True(t, ok)
	assert.Equal(t, ThemeValue, v)
	assert.Equal(t, 1, b.PendingLoadListeners())

	require.NoError(t, b.DispatchLoad())
	assert.False(t, b.Root().HasClass(TransientClass))
	assert.Equal(t, 1, browsersim.Count(b.Mutations(), browsersim.OpRemoveClass, TransientClass))

	// The attribute outlives the transient class.
	v, ok = b.Root().Attribute(ThemeAttribute)
	assert.True(t, ok)
	assert.Equal(t, ThemeValue, v)
}

func TestLightPreferenceTouchesNothing(t *testing.T) {
	for _, storage := range []map[string]string{nil, {StorageKey: "dark"}} {
		b := browsersim.New(browsersim.Options{Storage: storage})
		require.NoError(t, b.Run("noflash", Script))
		require.NoError(t, b.DispatchLoad())

		assert.Empty(t, b.Mutations())
		_, ok := b.Root().Attribute(ThemeAttribute)
		assert.False(t, ok)
	}
}

func TestInjectedTwiceLeavesNoClass(t *testing.T) {
	b := browsersim.New(browsersim.Options{PrefersDark: true})
	require.NoError(t, b.Run("first", Script))
	require.NoError(t, b.Run("second", Script))
	assert.Equal(t, 2, b.PendingLoadListeners())

	require.NoError(t, b.DispatchLoad())
	assert.False(t, b.Root().HasClass(TransientClass))
}

func TestStorageThrowsIsSilent(t *testing.T) {
	b := browsersim.New(browsersim.Options{
		PrefersDark:  true,
		StorageError: "SecurityError: The operation is insecure.",
	})

	require.NoError(t, b.Run("noflash", Script))
	require.NoError(t, b.DispatchLoad())
	assert.Empty(t, b.Mutations())
	assert.Empty(t, b.Root().Attributes)
	assert.Empty(t, b.Root().Classes)
}

func TestVerifyFlagsBrokenScripts(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "no catch",
			script: `localStorage.getItem('theme-ui-color-mode')`,
			want:   "dark-storage-denied: exception escaped the script",
		},
		{
			name: "never removes class",
			script: `(function () { try {
				if (!localStorage.getItem('theme-ui-color-mode') && matchMedia('(prefers-color-scheme: dark)').matches) {
					document.documentElement.setAttribute('data-theme', 'dark');
					document.documentElement.classList.add('theme-ui-dark');
				}
			} catch (e) {} })();`,
			want: "dark-no-preference: class \"theme-ui-dark\" still present after load",
		},
		{
			name:   "ignores system preference",
			script: `document.documentElement.setAttribute('data-theme', 'dark')`,
			want:   "light-no-preference: data-theme set to \"dark\" without a dark preference",
		},
		{
			name:   "writes storage",
			script: `try { localStorage.setItem('theme-ui-color-mode', 'dark') } catch (e) {}`,
			want:   "script wrote to storage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Verify(context.Background(), tt.script)
			require.NoError(t, err)
			assert.False(t, report.OK())

			found := false
			for _, v := range report.Violations() {
				if strings.Contains(v, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "violations: %v", report.Violations())
		})
	}
}

func TestVerifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Verify(ctx, Script)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindScripts(t *testing.T) {
	page := `<!DOCTYPE html><html><head><script src="/app.js"></script></head>
<body><script>` + Script + `</script><script>console.log(1)</script><p>hi</p></body></html>`

	scripts, err := FindScripts(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, Script, scripts[0])
}
