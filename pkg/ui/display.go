package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func title(w io.Writer, s string) {
	fmt.Fprintln(w, titleStyle.Render(s))
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(label+":"), value)
}

func status(enabled bool) string {
	if enabled {
		return okStyle.Render("enabled")
	}
	return errStyle.Render("disabled")
}

// DisplayPlugins prints the installed plugins.
func DisplayPlugins(w io.Writer, plugins []plugin.Plugin) {
	if len(plugins) == 0 {
		fmt.Fprintln(w, "No plugins installed")
		return
	}
	title(w, "Installed plugins:")
	for _, p := range plugins {
		line := "  " + p.Name
		if p.Version != "" {
			line += " " + labelStyle.Render(p.Version)
		}
		fmt.Fprintf(w, "%s [%s]\n", line, status(p.Enabled))
	}
}

// DisplayPluginInfo prints plugin information in a formatted way.
func DisplayPluginInfo(w io.Writer, p *plugin.Plugin, requirements []string) {
	title(w, "Plugin Information:")
	field(w, "Name", p.Name)
	field(w, "Version", p.Version)
	field(w, "Description", p.Description)
	field(w, "URL", p.URL)
	field(w, "Directory", p.Directory)
	field(w, "Status", status(p.Enabled))
	field(w, "Host requirement", p.HostRequirement)

	if len(p.Operators) > 0 {
		fmt.Fprintln(w)
		title(w, "Usage:")
		for _, op := range p.Operators {
			fmt.Fprintf(w, "  pluginhost run %s/%s [--param=value ...]\n", p.Name, op)
		}
	}

	if s := p.Server; s != nil {
		fmt.Fprintln(w)
		title(w, "Server:")
		field(w, "Type", string(s.Type))
		switch s.Type {
		case plugin.ServerTypeCommand:
			field(w, "Command Template", s.Command)
		case plugin.ServerTypeBinary:
			field(w, "Path", s.Path)
		case plugin.ServerTypeRemote:
			field(w, "Address", s.Address)
		}
		field(w, "Working Directory", s.WorkDir)
		if len(s.Env) > 0 {
			fmt.Fprintf(w, "  %s\n", labelStyle.Render("Environment Variables:"))
			keys := make([]string, 0, len(s.Env))
			for k := range s.Env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "    %s: %s\n", k, s.Env[k])
			}
		}
	}

	if len(requirements) > 0 {
		fmt.Fprintln(w)
		title(w, "Requirements:")
		for _, req := range requirements {
			fmt.Fprintf(w, "  - %s\n", req)
		}
	}
}

// DisplayOperators prints the registered operators.
func DisplayOperators(w io.Writer, entries []operator.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No operators available")
		return
	}
	title(w, "Available operators:")
	width := 0
	for _, e := range entries {
		width = max(width, len(e.URI))
	}
	for _, e := range entries {
		cfg := e.Operator.Config()
		if cfg.Unlisted {
			continue
		}
		label := cfg.Label
		if label == "" {
			label = cfg.Description
		}
		fmt.Fprintf(w, "  %-*s  %s\n", width, e.URI, labelStyle.Render(label))
	}
}

// DisplayExecutionSummary prints the execution summary in a formatted way.
func DisplayExecutionSummary(w io.Writer, s *operator.Summary) {
	title(w, "Execution summary: "+s.Operator)
	field(w, "Request", s.RequestID)
	if s.Success {
		field(w, "Success", okStyle.Render("true"))
	} else {
		field(w, "Success", errStyle.Render("false"))
	}
	field(w, "Duration", fmt.Sprintf("%.2fms", float64(s.Duration.Microseconds())/1000))
	if s.Error != "" {
		field(w, "Error", errStyle.Render(s.Error))
	}
	if len(s.Result) > 0 {
		data, err := json.MarshalIndent(s.Result, "    ", "  ")
		if err != nil {
			data = []byte(fmt.Sprint(s.Result))
		}
		fmt.Fprintf(w, "  %s\n    %s\n", labelStyle.Render("Result:"), data)
	}
	if len(s.Triggers) > 0 {
		fmt.Fprintf(w, "  %s\n", labelStyle.Render("Triggers:"))
		for _, t := range s.Triggers {
			params := ""
			if len(t.Params) > 0 {
				if data, err := json.Marshal(t.Params); err == nil {
					params = " " + string(data)
				}
			}
			fmt.Fprintf(w, "    %s%s\n", t.Name, params)
		}
	}
}
