package bootstrap

import "path/filepath"

// ResolveEnvironmentPython returns the path of the interpreter inside a
// virtual environment. Windows environments keep it under Scripts/ with an
// .exe suffix; every other platform uses bin/.
func ResolveEnvironmentPython(venvDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// ActivateHint returns the command that activates a virtual environment in
// the platform's default shell.
func ActivateHint(venvDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(venvDir, "Scripts", "activate")
	}
	return "source " + filepath.Join(venvDir, "bin", "activate")
}
