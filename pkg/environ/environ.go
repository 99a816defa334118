// Package environ locates the NWN install and user directories, resolves
// the active language/codepage, and resolves resource aliases. These are the
// environment-derived values the engine itself would read from the
// filesystem and OS environment; they are cached per-process (mirroring the
// reference implementation's functools.cache use) with an explicit reset
// hook for tests.
package environ

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

var (
	mu           sync.Mutex
	userDir      *string
	installDir   *string
	settingsTOML map[string]any
	aliases      map[string]string
	language     *nwtypes.Language
	codepage     *nwtypes.CodePage
)

// Reset clears every memoized value. Intended for tests that vary
// environment variables or the filesystem between cases.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	userDir = nil
	installDir = nil
	settingsTOML = nil
	aliases = nil
	language = nil
	codepage = nil
}

// inTest reports whether we're running under `go test`, mirroring the
// reference implementation's PYTEST_CURRENT_TEST guard that keeps tests from
// falling back onto the real machine's NWN install.
func inTest() bool {
	return strings.HasSuffix(os.Args[0], ".test") || flagTestBinary
}

// flagTestBinary lets tests force the guard without relying on os.Args shape.
var flagTestBinary = false

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// UserDirectory finds the NWN user directory: NWN_HOME or
// NWN_USER_DIRECTORY, else a platform default.
func UserDirectory() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if userDir != nil {
		return *userDir, nil
	}

	candidates := []string{
		os.Getenv("NWN_HOME"),
		os.Getenv("NWN_USER_DIRECTORY"),
	}
	if !inTest() {
		home, _ := os.UserHomeDir()
		if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
			candidates = append(candidates, filepath.Join(home, "Documents", "Neverwinter Nights"))
		} else {
			candidates = append(candidates, filepath.Join(home, ".local", "share", "Neverwinter Nights"))
		}
	}

	for _, c := range candidates {
		if c != "" && isDir(c) {
			userDir = &c
			return c, nil
		}
	}
	return "", fmt.Errorf("environ: could not locate NWN user directory; try setting NWN_HOME")
}

// InstallDirectory finds the NWN installation directory: NWN_ROOT, else the
// default Steam install location for the current platform.
func InstallDirectory() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if installDir != nil {
		return *installDir, nil
	}

	candidates := []string{os.Getenv("NWN_ROOT")}
	if !inTest() {
		const suffix = "Steam/steamapps/common/Neverwinter Nights"
		home, _ := os.UserHomeDir()
		switch runtime.GOOS {
		case "windows":
			candidates = append(candidates, filepath.Join(`c:\program files (x86)`, suffix))
		case "darwin":
			candidates = append(candidates, filepath.Join(home, "Library/Application Support", suffix))
		default:
			candidates = append(candidates, filepath.Join(home, ".local/share", suffix))
		}
	}

	for _, c := range candidates {
		if c != "" && isDir(c) {
			installDir = &c
			return c, nil
		}
	}
	return "", fmt.Errorf("environ: could not locate NWN install; try setting NWN_ROOT")
}

func loadSettings() map[string]any {
	mu.Lock()
	if settingsTOML != nil {
		defer mu.Unlock()
		return settingsTOML
	}
	mu.Unlock()

	parsed := map[string]any{}
	if user, err := UserDirectory(); err == nil {
		var decoded map[string]any
		if _, err := toml.DecodeFile(filepath.Join(user, "settings.tml"), &decoded); err == nil {
			parsed = decoded
		}
	}

	mu.Lock()
	defer mu.Unlock()
	settingsTOML = parsed
	return settingsTOML
}

// Setting looks up a dotted key (e.g. "game.language.override") in the
// user's settings.tml file. Returns ok=false if any path component is
// missing.
func Setting(key string) (any, bool) {
	settings := loadSettings()
	parts := strings.Split(key, ".")
	var cur any = settings
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func loadAliases() map[string]string {
	mu.Lock()
	if aliases != nil {
		defer mu.Unlock()
		return aliases
	}
	mu.Unlock()

	parsed := map[string]string{}
	if user, err := UserDirectory(); err == nil {
		if f, err := os.Open(filepath.Join(user, "nwn.ini")); err == nil {
			parseAliasINI(f, parsed)
			f.Close()
		}
	}

	mu.Lock()
	defer mu.Unlock()
	aliases = parsed
	return aliases
}

// parseAliasINI extracts the [Alias] section of an nwn.ini file. Only that
// one section is meaningful to this library; a general-purpose ini parser
// would be overkill for a single flat key=value block.
func parseAliasINI(f *os.File, dst map[string]string) {
	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToUpper(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}
		if section != "ALIAS" {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		dst[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
}

// ResolveAlias resolves a single NWN resource alias (e.g. "OVERRIDE",
// "DEVELOPMENT") to a user-directory subpath, honoring a [Alias] override
// section in the user's nwn.ini.
func ResolveAlias(alias string) (string, error) {
	user, err := UserDirectory()
	if err != nil {
		return "", err
	}
	if path, ok := loadAliases()[strings.ToUpper(alias)]; ok {
		return path, nil
	}
	return filepath.Join(user, strings.ToLower(alias)), nil
}

// Language detects the active UI language: NWN_LANGUAGE, else
// settings.tml's game.language.override, else the OS locale, else English.
func Language() nwtypes.Language {
	mu.Lock()
	if language != nil {
		defer mu.Unlock()
		return *language
	}
	mu.Unlock()

	if code := os.Getenv("NWN_LANGUAGE"); code != "" {
		l := nwtypes.LanguageFromCode(code)
		mu.Lock()
		language = &l
		mu.Unlock()
		return l
	}
	if v, ok := Setting("game.language.override"); ok {
		if code, ok := v.(string); ok && code != "" {
			l := nwtypes.LanguageFromCode(code)
			mu.Lock()
			language = &l
			mu.Unlock()
			return l
		}
	}
	code := localeLanguageCode()
	l := nwtypes.LanguageFromCode(code)
	mu.Lock()
	language = &l
	mu.Unlock()
	return l
}

// localeLanguageCode extracts a bare two-letter code from $LANG
// (e.g. "en_US.UTF-8" -> "en"), the closest stdlib equivalent to
// Python's locale.getlocale().
func localeLanguageCode() string {
	for _, env := range []string{"LC_ALL", "LANG"} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		code, _, _ := strings.Cut(v, "_")
		code, _, _ = strings.Cut(code, ".")
		if code != "" {
			return code
		}
	}
	return "en"
}

// CodePage detects the active codepage: NWN_CODEPAGE, else
// settings.tml's game.language.codepage, else the language's default.
func CodePage() nwtypes.CodePage {
	mu.Lock()
	if codepage != nil {
		defer mu.Unlock()
		return *codepage
	}
	mu.Unlock()

	var cp nwtypes.CodePage
	if v := os.Getenv("NWN_CODEPAGE"); v != "" {
		cp = parseCodePage(v)
	} else if v, ok := Setting("game.language.codepage"); ok {
		switch t := v.(type) {
		case int64:
			cp = nwtypes.CodePage(t)
		case string:
			cp = parseCodePage(t)
		}
	}
	if !cp.Valid() {
		cp = Language().DefaultCodePage()
	}
	mu.Lock()
	codepage = &cp
	mu.Unlock()
	return cp
}

func parseCodePage(s string) nwtypes.CodePage {
	switch strings.TrimSpace(s) {
	case "1250":
		return nwtypes.CP1250
	case "1251":
		return nwtypes.CP1251
	case "1252":
		return nwtypes.CP1252
	default:
		return 0
	}
}
