package watch

import "os"

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// GitDir returns the .git directory of a working tree rooted at root, or
// root itself for a bare repository.
func GitDir(root string) string {
	dot := root + string(os.PathSeparator) + ".git"
	if isDir(dot) {
		return dot
	}
	return root
}
