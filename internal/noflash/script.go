// Package noflash holds the inline script that prevents a flash of light-mode
// content for visitors whose system prefers a dark color scheme, and the
// tooling to verify its behavior.
//
// The script marks the root element with data-theme="dark" when the system
// prefers dark. Visitors without a persisted theme choice additionally get the
// transient theme-ui-dark class, removed once the window load event fires and
// the theming library takes over. Any exception is swallowed so the page falls
// back to light styling.
package noflash

const (
	// StorageKey is the localStorage key owned by the theming library.
	StorageKey = "theme-ui-color-mode"

	// ThemeAttribute and ThemeValue mark the root element as dark.
	ThemeAttribute = "data-theme"
	ThemeValue     = "dark"

	// TransientClass suppresses light-mode paint until the load event.
	TransientClass = "theme-ui-dark"

	// ScriptKey identifies the script component among pre-body components.
	ScriptKey = "theme-ui-no-flash-dark"
)

// Script is emitted verbatim as the first pre-body element.
const Script = `(function () {
  try {
    var hasLocalStorage = localStorage.getItem('theme-ui-color-mode');

    if (
      window.matchMedia('(prefers-color-scheme: dark)').matches
    ) {
      document.querySelector('html').setAttribute('data-theme', 'dark')
      if (!hasLocalStorage) {
        document.documentElement.classList.add('theme-ui-dark')
        window.addEventListener('load', () => {
          document.documentElement.classList.remove('theme-ui-dark')
        });
      }
    }
  } catch (err) {}
})();`
