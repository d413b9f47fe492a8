package browser

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Family is the storage format of a browser's history database
type Family string

const (
	FamilyChromium Family = "chromium"
	FamilyWebKit   Family = "webkit"
)

// Browser describes where one installed browser keeps its history
type Browser struct {
	Name   string
	Family Family
	// Root is the user-data directory for Chromium browsers and the
	// History.db file for WebKit browsers.
	Root string
}

// profileDB is one history database of one browser profile
type profileDB struct {
	Browser string
	Profile string
	Path    string
}

// KnownBrowsers returns the browsers supported on goos, keyed by name
func KnownBrowsers(home, goos string) map[string]Browser {
	browsers := make(map[string]Browser)
	add := func(name string, family Family, root string) {
		browsers[name] = Browser{Name: name, Family: family, Root: root}
	}

	switch goos {
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		add("chrome", FamilyChromium, filepath.Join(support, "Google", "Chrome"))
		add("edge", FamilyChromium, filepath.Join(support, "Microsoft Edge"))
		add("brave", FamilyChromium, filepath.Join(support, "BraveSoftware", "Brave-Browser"))
		add("arc", FamilyChromium, filepath.Join(support, "Arc", "User Data"))
		add("chromium", FamilyChromium, filepath.Join(support, "Chromium"))
		add("vivaldi", FamilyChromium, filepath.Join(support, "Vivaldi"))
		add("safari", FamilyWebKit, filepath.Join(home, "Library", "Safari", "History.db"))
	case "linux":
		cfg := filepath.Join(home, ".config")
		add("chrome", FamilyChromium, filepath.Join(cfg, "google-chrome"))
		add("edge", FamilyChromium, filepath.Join(cfg, "microsoft-edge"))
		add("brave", FamilyChromium, filepath.Join(cfg, "BraveSoftware", "Brave-Browser"))
		add("chromium", FamilyChromium, filepath.Join(cfg, "chromium"))
		add("vivaldi", FamilyChromium, filepath.Join(cfg, "vivaldi"))
	case "windows":
		local := filepath.Join(home, "AppData", "Local")
		add("chrome", FamilyChromium, filepath.Join(local, "Google", "Chrome", "User Data"))
		add("edge", FamilyChromium, filepath.Join(local, "Microsoft", "Edge", "User Data"))
		add("brave", FamilyChromium, filepath.Join(local, "BraveSoftware", "Brave-Browser", "User Data"))
		add("chromium", FamilyChromium, filepath.Join(local, "Chromium", "User Data"))
		add("vivaldi", FamilyChromium, filepath.Join(local, "Vivaldi", "User Data"))
	}

	return browsers
}

// defaultBrowsers resolves the browsers of the running platform
func defaultBrowsers() map[string]Browser {
	home, err := os.UserHomeDir()
	if err != nil {
		return map[string]Browser{}
	}
	return KnownBrowsers(home, runtime.GOOS)
}

// getDbPaths returns the history databases of b that exist on disk. For
// Chromium browsers every "Default" and "Profile N" directory is checked.
func getDbPaths(b Browser) []profileDB {
	if b.Family == FamilyWebKit {
		if fileExists(b.Root) {
			return []profileDB{{Browser: b.Name, Path: b.Root}}
		}
		return nil
	}

	entries, err := os.ReadDir(b.Root)
	if err != nil {
		return nil
	}

	names := loadProfileNames(b.Root)

	var dbs []profileDB
	for _, entry := range entries {
		dir := entry.Name()
		if !entry.IsDir() || (dir != "Default" && !strings.HasPrefix(dir, "Profile ")) {
			continue
		}
		path := filepath.Join(b.Root, dir, "History")
		if !fileExists(path) {
			continue
		}
		profile := dir
		if name, ok := names[dir]; ok && name != "" {
			profile = name
		}
		dbs = append(dbs, profileDB{Browser: b.Name, Profile: profile, Path: path})
	}

	sort.Slice(dbs, func(i, j int) bool { return dbs[i].Path < dbs[j].Path })
	return dbs
}

// loadProfileNames maps profile directories to the names the user gave them,
// as recorded in the browser's "Local State" file.
func loadProfileNames(root string) map[string]string {
	data, err := os.ReadFile(filepath.Join(root, "Local State"))
	if err != nil {
		return nil
	}

	names := make(map[string]string)
	gjson.GetBytes(data, "profile.info_cache").ForEach(func(key, value gjson.Result) bool {
		names[key.String()] = value.Get("name").String()
		return true
	})
	return names
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
