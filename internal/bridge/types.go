// Package bridge implements the External Tool Server protocol (spec.md §6):
// newline-delimited JSON over a child process's stdio, with no correlation
// IDs, so each child serialises to a single outstanding request at a time.
package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ServerConfig describes one external tool child process.
type ServerConfig struct {
	ID      string            `yaml:"id" json:"id"`
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args,omitempty"`
	Env     map[string]string `yaml:"env" json:"env,omitempty"`
	WorkDir string            `yaml:"workdir" json:"workdir,omitempty"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout,omitempty"`
}

// Validate rejects configurations that smell like path traversal or shell
// injection via the spawned command/args.
func (c *ServerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("server id is required")
	}
	if c.Command == "" {
		return fmt.Errorf("command is required for server %q", c.ID)
	}
	if strings.ContainsAny(c.Command, ";|&$`\n") {
		return fmt.Errorf("command for server %q contains shell metacharacters", c.ID)
	}
	for _, a := range c.Args {
		if strings.Contains(a, "\x00") {
			return fmt.Errorf("arg for server %q contains a NUL byte", c.ID)
		}
	}
	return nil
}

// Request is one line sent to a child's stdin.
type Request struct {
	Type string          `json:"type"`
	Name string          `json:"name,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ListToolsResponse is the reply to {"type":"list_tools"}.
type ListToolsResponse struct {
	Tools []ToolDescriptor `json:"tools"`
}

// ToolDescriptor is how an external tool describes itself over the bridge.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// CallToolResponse is the reply to {"type":"call_tool",...}.
type CallToolResponse struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"is_error,omitempty"`
}

// ContentBlock is one unit of a call_tool response's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text concatenates every text content block, which is the common case for
// tools that answer with a single block.
func (r CallToolResponse) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}
