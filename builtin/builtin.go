// Package builtin supplies the default expression environment made
// available to every EXPR token: host/platform introspection, filesystem
// predicates, path manipulation, and PATH-like string helpers via
// github.com/ardnew/mung, plus the process environment under "env"
// (grounded on the teacher's built-in expr-lang environment).
package builtin

import (
	"bufio"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

var (
	cacheOnce sync.Once
	cache     map[string]any
)

// Env returns a fresh clone of the lazily-initialized, process-scoped
// builtin environment. The clone may be mutated by the caller (e.g. to
// overlay session variables) without affecting the shared cache.
func Env() map[string]any {
	cacheOnce.Do(func() {
		cache = map[string]any{
			"target":   getTarget(),
			"platform": getPlatform(),
			"hostname": getHostname(),
			"user":     getUser(),
			"shell":    getShell(),

			"cwd": getCwd,

			"file": map[string]any{
				"exists":    fileExists,
				"isDir":     fileIsDir,
				"isRegular": fileIsRegular,
				"isSymlink": fileIsSymlink,
			},

			"path": map[string]any{
				"abs": pathAbs,
				"cat": pathCat,
				"rel": pathRel,
			},

			"mung": map[string]any{
				"prefix":   mungPrefix,
				"prefixif": mungPrefixIf,
			},
		}
	})

	return maps.Clone(cache)
}

// EnvWithProcessEnviron returns Env() plus an "env" entry populated from
// the process environment, mirroring the teacher's env() builtin.
func EnvWithProcessEnviron() map[string]any {
	e := Env()
	e["env"] = buildProcessEnvMap()

	return e
}

func buildProcessEnvMap() map[string]string {
	out := make(map[string]string)

	for _, kv := range os.Environ() {
		if name, val, ok := strings.Cut(kv, "="); ok {
			out[name] = val
		}
	}

	return out
}

type target struct {
	OS   string
	Arch string
}

func getTarget() target {
	t := getPlatform()

	switch t.Arch {
	case "386":
		t.Arch = "i386"
	case "amd64":
		t.Arch = "x86_64"
	case "arm":
		if arm, ok := os.LookupEnv("GOARM"); ok {
			arm, _, _ = strings.Cut(arm, ",")

			switch strings.TrimSpace(arm) {
			case "5", "6", "7":
				t.Arch = "armv" + arm
			}
		}
	case "arm64":
		if t.OS != "darwin" {
			t.Arch = "aarch64"
		}
	case "mipsle":
		t.Arch = "mipsel"
	}

	return t
}

func getPlatform() target {
	var (
		o, a string
		ok   bool
	)

	if o, ok = os.LookupEnv("GOHOSTOS"); !ok {
		if o, ok = os.LookupEnv("GOOS"); !ok {
			o = runtime.GOOS
		}
	}

	if a, ok = os.LookupEnv("GOHOSTARCH"); !ok {
		if a, ok = os.LookupEnv("GOARCH"); !ok {
			a = runtime.GOARCH
		}
	}

	return target{OS: o, Arch: a}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

func getUser() *user.User {
	u, err := user.Current()
	if err != nil {
		return nil
	}

	return u
}

func getShell() string {
	if shell, ok := os.LookupEnv("SHELL"); ok {
		return shell
	}

	u := getUser()
	if u == nil || u.Username == "" {
		return ""
	}

	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}

	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		e := strings.Split(s.Text(), ":")
		if len(e) > 6 && e[0] == u.Username {
			return e[6]
		}
	}

	return ""
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func fileIsSymlink(path string) bool {
	info, err := os.Lstat(path)

	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathCat(elem ...string) string {
	return filepath.Join(elem...)
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return pathCat(from, to)
	}

	return p
}

func mungPrefix(key string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

func mungPrefixIf(key string, predicate func(string) bool, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(predicate),
	).String()
}
