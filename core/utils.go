package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Title upper-cases the first letter of every word of `s` and lowers the others.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// Getwd tries to find the project root: the closest parent directory holding the go.mod file.
// go-test changes the working directory to the test package being run during tests,
// so the current directory cannot be relied upon for locating config & assets.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd // not in a source tree (e.g. deployed binary)
		}
		currDir = newDir
	}
}
