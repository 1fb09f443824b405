package main

import (
	"fmt"
	"strings"

	"github.com/asheshgoplani/codex-sessions/internal/session"
)

const configUsage = "Usage: codex-sessions config init|path|set <key> <value>"

func (a *app) cmdConfig(args []string) int {
	if len(args) == 3 && args[0] == "set" {
		return a.configSet(args[1], args[2])
	}
	if len(args) != 1 {
		fmt.Fprintln(a.stderr, configUsage)
		return 2
	}
	switch args[0] {
	case "path":
		path, err := session.GetUserConfigPath()
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(a.stdout, path)
		return 0
	case "init":
		path, created, err := session.CreateExampleConfig()
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		if created {
			fmt.Fprintf(a.stdout, "Created %s\n", path)
		} else {
			fmt.Fprintf(a.stdout, "%s already exists\n", path)
		}
		return 0
	}
	fmt.Fprintln(a.stderr, configUsage)
	return 2
}

// configSet updates one key in config.toml, creating the file if needed.
func (a *app) configSet(key, value string) int {
	path, err := session.GetUserConfigPath()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	cfg, err := session.LoadUserConfigFrom(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	if err := cfg.Set(key, value); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		fmt.Fprintf(a.stderr, "Keys: %s\n", strings.Join(session.ConfigKeys(), ", "))
		return 2
	}
	if err := session.SaveUserConfig(cfg); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", key, value, path)
	return 0
}
