package assets

import (
	"os"
	"path/filepath"
	"strings"
)

// excludedSuffix marks files left untouched by ReplaceVariables. A
// deliberately narrow exclusion (spec §4.3, §9): only .jar archives are
// skipped, every other regular file is treated as text.
const excludedSuffix = ".jar"

// ReplaceVariables walks dir and, for every regular file not ending in
// .jar, rewrites it with every {{key}} occurrence substituted for value
// (spec §4.3 replace_variables).
func ReplaceVariables(dir string, variables map[string]string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, excludedSuffix) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		replaced := substitute(string(content), variables)
		if replaced == string(content) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(replaced), info.Mode())
	})
}
