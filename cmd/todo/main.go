package main

import (
	"fmt"
	"os"

	"todo-notes/internal/client"
	"todo-notes/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("todo", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "path to a TOML config file")
	server := fs.StringP("server", "s", "", "todo API base URL")
	pageSize := fs.IntP("page-size", "n", 0, "todos per page")
	_ = fs.Parse(os.Args[1:])

	path, optional := *configPath, false
	if path == "" {
		p, err := tui.DefaultConfigPath()
		if err == nil {
			path, optional = p, true
		}
	}

	cfg, err := tui.LoadConfig(path, optional)
	if err != nil {
		fail(err)
	}
	if fs.Changed("server") {
		cfg.ServerURL = *server
	}
	if fs.Changed("page-size") {
		cfg.PageSize = *pageSize
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	api, err := client.New(cfg.ServerURL)
	if err != nil {
		fail(err)
	}

	p := tea.NewProgram(tui.New(api, cfg.PageSize), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "todo:", err)
	os.Exit(1)
}
