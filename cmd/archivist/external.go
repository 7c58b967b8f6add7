package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/4thel00z/archivist/internal"
)

const externalPrefix = "archivist-"

func findExternal(name string) (string, error) {
	binary := externalPrefix + name
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("unknown command %q: %s not found in PATH", name, binary)
	}
	return path, nil
}

func listExternalCommands() []string {
	var commands []string
	seen := make(map[string]bool)

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		commands = appendExternalsFromDir(dir, seen, commands)
	}
	sort.Strings(commands)
	return commands
}

func appendExternalsFromDir(dir string, seen map[string]bool, commands []string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return commands
	}

	for _, entry := range entries {
		name := extractExternalName(dir, entry)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		commands = append(commands, name)
	}
	return commands
}

func extractExternalName(dir string, entry os.DirEntry) string {
	if entry.IsDir() {
		return ""
	}

	name := entry.Name()
	if !strings.HasPrefix(name, externalPrefix) {
		return ""
	}

	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil || info.Mode()&0111 == 0 {
		return ""
	}

	return strings.TrimPrefix(name, externalPrefix)
}

// externalInvocation is a plugin call: `archivist [-c path] <name> args...`.
type externalInvocation struct {
	configPath string
	name       string
	args       []string
}

// parseExternalArgs accepts only --config/-c ahead of the command name;
// any other leading flag belongs to a built-in command.
func parseExternalArgs(args []string) (externalInvocation, bool) {
	inv := externalInvocation{configPath: internal.DefaultConfigFile}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-c" || arg == "--config":
			if i+1 >= len(args) {
				return inv, false
			}
			i++
			inv.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			inv.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-c="):
			inv.configPath = strings.TrimPrefix(arg, "-c=")
		case arg == "" || arg[0] == '-':
			return inv, false
		default:
			inv.name = arg
			inv.args = args[i+1:]
			return inv, true
		}
	}
	return inv, false
}

func executeExternal(ctx context.Context, inv externalInvocation, version string) error {
	binaryPath, err := findExternal(inv.name)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, binaryPath, inv.args...)
	cmd.Env = buildExternalEnv(inv.configPath, version)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// buildExternalEnv exposes the data dir and config of the current
// directory to plugins. An unreadable config falls back to defaults.
func buildExternalEnv(configPath, version string) []string {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		cfg = internal.DefaultConfig()
	}
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	vars := internal.NewScopeResolver(cfg.ArchiveBox.DataDir).EnvVars(configPath, version)
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env
}
